package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/source"
)

func testPlan() *model.QueryPlan {
	return &model.QueryPlan{
		PrimaryKeywords: []string{"autonomous trucking"},
		AdjacentThemes: []model.AdjacentTheme{
			{Theme: "truck depot automation", Order: model.ThemeOrder2nd},
		},
		SearchQueries: []string{"autonomous trucking startups 2026"},
		Summary:       "summary",
	}
}

func TestDiscoverDeduplicatesAcrossAdaptersAndQueries(t *testing.T) {
	// Both adapters return the same company under varying whitespace and
	// case; one record survives.
	a := &fakeAdapter{name: model.SourceCrunchbase, results: func(query string) []model.Candidate {
		return []model.Candidate{{Name: "TruckCo", OperatingStatus: "active", LastFundingType: "seed"}}
	}}
	b := &fakeAdapter{name: model.SourceWeb, results: func(query string) []model.Candidate {
		return []model.Candidate{{Name: "  truckco ", NeedsEnrichment: true}}
	}}

	result := Discover(context.Background(), []source.Adapter{a, b}, nil, testPlan(), testConfig().Pipeline)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "truckco", model.NormalizeName(result.Candidates[0].Name))
}

func TestDiscoverExclusions(t *testing.T) {
	a := &fakeAdapter{name: model.SourceCrunchbase, results: func(query string) []model.Candidate {
		return []model.Candidate{
			{Name: "KeepMe", OperatingStatus: "active", LastFundingType: "seed"},
			{Name: "X", OperatingStatus: "active"},
			{Name: "ClosedCo", OperatingStatus: "closed", LastFundingType: "seed"},
			{Name: "BigCo", OperatingStatus: "active", LastFundingType: "series_c"},
			{Name: "UnknownStage", OperatingStatus: "active", LastFundingType: "weird_round"},
		}
	}}

	result := Discover(context.Background(), []source.Adapter{a}, nil, testPlan(), testConfig().Pipeline)

	names := make(map[string]model.FundingStage)
	for _, c := range result.Candidates {
		names[c.Name] = c.FundingStage
	}
	assert.Len(t, names, 2)
	assert.Equal(t, model.StageEarly, names["KeepMe"])
	// Unknown stage is retained, not guessed at.
	assert.Equal(t, model.StageUnknown, names["UnknownStage"])
}

func TestDiscoverAnnotatesProvenance(t *testing.T) {
	a := &fakeAdapter{name: model.SourceCrunchbase, results: func(query string) []model.Candidate {
		if query == "truck depot automation startups" {
			return []model.Candidate{{Name: "DepotPilot", OperatingStatus: "active"}}
		}
		return nil
	}}

	result := Discover(context.Background(), []source.Adapter{a}, nil, testPlan(), testConfig().Pipeline)

	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, model.DiscoveredAdjacentTheme, c.DiscoverySource)
	assert.Equal(t, "truck depot automation", c.DiscoveredViaTheme)
	assert.Equal(t, "truck depot automation startups", c.DiscoveryQuery)
}

func TestDiscoverFailingAdapterDoesNotPoisonBatch(t *testing.T) {
	// A high fan-out with one dead adapter: results from the healthy one
	// are identical run to run.
	plan := &model.QueryPlan{Summary: "s"}
	for i := 0; i < 100; i++ {
		plan.SearchQueries = append(plan.SearchQueries, fmt.Sprintf("query %d", i))
	}
	cfg := testConfig().Pipeline
	cfg.MaxSearchQueries = 100

	var calls atomic.Int64
	healthy := &fakeAdapter{name: model.SourceCrunchbase, results: func(query string) []model.Candidate {
		calls.Add(1)
		return []model.Candidate{{Name: "Only " + query, OperatingStatus: "active"}}
	}}
	dead := &fakeAdapter{name: model.SourceWeb}

	result := Discover(context.Background(), []source.Adapter{healthy, dead}, nil, plan, cfg)

	assert.Equal(t, int64(100), calls.Load())
	assert.Len(t, result.Candidates, 100)
}

func TestBuildQueriesTruncation(t *testing.T) {
	plan := &model.QueryPlan{
		PrimaryKeywords: []string{"a", "b", "c", "d", "e"},
		SearchQueries:   []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7"},
		AdjacentThemes: []model.AdjacentTheme{
			{Theme: "t1"}, {Theme: "t2"}, {Theme: "t3"}, {Theme: "t4"}, {Theme: "t5"}, {Theme: "t6"},
		},
	}
	cfg := testConfig().Pipeline

	queries := buildQueries(plan, cfg)

	// 3 keywords + 5 search queries + 5 themes.
	assert.Len(t, queries, 13)
	assert.Equal(t, "t1 startups", queries[8].text)
	assert.Equal(t, model.DiscoveredAdjacentTheme, queries[8].src)
}

func TestDedupeSources(t *testing.T) {
	sources := []model.ThesisSource{
		{URL: "https://arxiv.org/abs/1"},
		{URL: "https://arxiv.org/abs/1/"},
		{URL: "HTTPS://ARXIV.ORG/ABS/1"},
		{URL: "https://arxiv.org/abs/2"},
		{URL: ""},
	}

	out := dedupeSources(sources)
	require.Len(t, out, 2)
	assert.Equal(t, "https://arxiv.org/abs/1", out[0].URL)
	assert.Equal(t, "https://arxiv.org/abs/2", out[1].URL)
}
