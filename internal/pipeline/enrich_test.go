package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/model"
)

type fakeEnricher struct {
	mu      sync.Mutex
	asked   []string
	records map[string]*model.Candidate
}

func (f *fakeEnricher) Enrich(ctx context.Context, name, contextDesc string) *model.Candidate {
	f.mu.Lock()
	f.asked = append(f.asked, name)
	f.mu.Unlock()
	return f.records[name]
}

func TestEnrichCandidatesAppliesVerifiedRecord(t *testing.T) {
	enricher := &fakeEnricher{records: map[string]*model.Candidate{
		"TruckCo": {
			Name:            "TruckCo",
			Description:     "Autonomous trucking for regional freight",
			Website:         "https://truckco.example",
			FoundedYear:     2021,
			FundingTotalUSD: 4_500_000,
			LastFundingType: "seed",
			OperatingStatus: "active",
			Sources: []model.SourceRef{
				{Type: "crunchbase", URL: "https://www.crunchbase.com/organization/truckco"},
			},
		},
	}}
	candidates := []model.Candidate{
		{Name: "TruckCo", Description: "loose web description", NeedsEnrichment: true,
			Sources: []model.SourceRef{{Type: "web", URL: "https://example.com/article"}}},
		{Name: "Verified Already", Verified: true},
	}

	n := EnrichCandidates(context.Background(), enricher, candidates, 5)

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"TruckCo"}, enricher.asked)

	c := candidates[0]
	assert.True(t, c.Verified)
	assert.False(t, c.NeedsEnrichment)
	assert.Equal(t, "https://truckco.example", c.Website)
	assert.Equal(t, 2021, c.FoundedYear)
	assert.Equal(t, model.StageEarly, c.FundingStage)
	assert.Equal(t, "Autonomous trucking for regional freight", c.Description)
	// Web citation retained alongside the provider citation.
	require.Len(t, c.Sources, 2)
}

func TestEnrichCandidatesNoMatchLeavesCandidateAlone(t *testing.T) {
	enricher := &fakeEnricher{records: map[string]*model.Candidate{}}
	candidates := []model.Candidate{
		{Name: "MysteryCo", Description: "web description", NeedsEnrichment: true},
	}

	n := EnrichCandidates(context.Background(), enricher, candidates, 5)

	assert.Equal(t, 0, n)
	assert.True(t, candidates[0].NeedsEnrichment)
	assert.False(t, candidates[0].Verified)
	assert.Equal(t, "web description", candidates[0].Description)
}

func TestEnrichCandidatesBatches(t *testing.T) {
	enricher := &fakeEnricher{records: map[string]*model.Candidate{}}
	var candidates []model.Candidate
	for i := 0; i < 12; i++ {
		candidates = append(candidates, model.Candidate{
			Name:            string(rune('A' + i)),
			NeedsEnrichment: true,
		})
	}

	EnrichCandidates(context.Background(), enricher, candidates, 5)
	assert.Len(t, enricher.asked, 12)
}

func TestEnrichCandidatesNilEnricher(t *testing.T) {
	candidates := []model.Candidate{{Name: "TruckCo", NeedsEnrichment: true}}
	assert.Equal(t, 0, EnrichCandidates(context.Background(), nil, candidates, 5))
	assert.True(t, candidates[0].NeedsEnrichment)
}
