package pipeline

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/source"
)

// SourceSearcher collects thesis-level citations. Satisfied by the web
// adapter; nil when web search is not configured.
type SourceSearcher interface {
	SearchSources(ctx context.Context, query string, limit int) []model.ThesisSource
}

// discoveryQuery is one unit of fan-out work: a query string plus where in
// the plan it came from.
type discoveryQuery struct {
	text  string
	src   model.DiscoverySource
	theme string
}

// DiscoveryResult is the output of the discovery stage.
type DiscoveryResult struct {
	Candidates []model.Candidate
	Sources    []model.ThesisSource
}

// Discover fans the query plan out across every adapter concurrently and
// merges the results. One call per (adapter, query) pair; the stage waits
// for all calls to settle before returning. Adapter failures have already
// degraded to empty results, so the batch never fails.
func Discover(ctx context.Context, adapters []source.Adapter, srcSearcher SourceSearcher, plan *model.QueryPlan, cfg config.PipelineConfig) *DiscoveryResult {
	queries := buildQueries(plan, cfg)

	acc := newAccumulator()
	g, gCtx := errgroup.WithContext(ctx)

	for _, adapter := range adapters {
		for _, q := range queries {
			g.Go(func() error {
				found := adapter.Search(gCtx, q.text, cfg.ResultsPerQuery)
				acc.add(found, q)
				return nil
			})
		}
	}

	// Thesis-evidence sweep, one query per primary keyword.
	var (
		sourcesMu sync.Mutex
		sources   []model.ThesisSource
	)
	if srcSearcher != nil {
		for _, kw := range truncate(plan.PrimaryKeywords, cfg.MaxKeywords) {
			g.Go(func() error {
				found := srcSearcher.SearchSources(gCtx, kw+" market research", cfg.ResultsPerQuery)
				sourcesMu.Lock()
				sources = append(sources, found...)
				sourcesMu.Unlock()
				return nil
			})
		}
	}

	_ = g.Wait()

	result := &DiscoveryResult{
		Candidates: acc.candidates(),
		Sources:    dedupeSources(sources),
	}

	zap.L().Info("discovery complete",
		zap.Int("queries", len(queries)),
		zap.Int("adapters", len(adapters)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("thesis_sources", len(result.Sources)),
		zap.Int("excluded", acc.excluded),
	)

	return result
}

// buildQueries assembles the bounded query set from the plan: primary
// keywords, generated search queries, and adjacent themes, each truncated
// to keep total adapter calls bounded.
func buildQueries(plan *model.QueryPlan, cfg config.PipelineConfig) []discoveryQuery {
	var queries []discoveryQuery
	for _, kw := range truncate(plan.PrimaryKeywords, cfg.MaxKeywords) {
		queries = append(queries, discoveryQuery{text: kw, src: model.DiscoveredPrimary})
	}
	for _, q := range truncate(plan.SearchQueries, cfg.MaxSearchQueries) {
		queries = append(queries, discoveryQuery{text: q, src: model.DiscoveredPrimary})
	}
	themes := plan.AdjacentThemes
	if cfg.MaxAdjacentThemes > 0 && len(themes) > cfg.MaxAdjacentThemes {
		themes = themes[:cfg.MaxAdjacentThemes]
	}
	for _, t := range themes {
		queries = append(queries, discoveryQuery{
			text:  t.Theme + " startups",
			src:   model.DiscoveredAdjacentTheme,
			theme: t.Theme,
		})
	}
	return queries
}

func truncate(items []string, max int) []string {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

// accumulator applies the per-candidate admission rules as result streams
// arrive, in arrival order. Completion order across concurrent calls is
// adversarial; first write wins for a given normalized name, whichever
// adapter or query produced it.
type accumulator struct {
	mu       sync.Mutex
	seen     map[string]bool
	accepted []model.Candidate
	excluded int
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[string]bool)}
}

func (a *accumulator) add(found []model.Candidate, q discoveryQuery) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range found {
		if !model.ValidName(c.Name) {
			a.excluded++
			continue
		}
		key := model.NormalizeName(c.Name)
		if a.seen[key] {
			continue
		}
		if c.OperatingStatus != "" && !strings.EqualFold(c.OperatingStatus, "active") {
			a.excluded++
			continue
		}
		stage := model.ClassifyFundingStage(c.LastFundingType)
		if stage == model.StageLate {
			a.excluded++
			continue
		}

		c.FundingStage = stage
		c.DiscoverySource = q.src
		c.DiscoveredViaTheme = q.theme
		c.DiscoveryQuery = q.text

		a.seen[key] = true
		a.accepted = append(a.accepted, c)
	}
}

func (a *accumulator) candidates() []model.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accepted
}

// dedupeSources drops citations whose normalized URL was already seen.
func dedupeSources(sources []model.ThesisSource) []model.ThesisSource {
	seen := make(map[string]bool, len(sources))
	var out []model.ThesisSource
	for _, s := range sources {
		key := strings.ToLower(strings.TrimRight(strings.TrimSpace(s.URL), "/"))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
