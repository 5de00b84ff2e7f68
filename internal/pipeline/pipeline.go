package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/source"
	"github.com/sells-group/thesis-scout/internal/store"
	"github.com/sells-group/thesis-scout/pkg/anthropic"
)

// eventBuffer keeps a slow consumer from stalling stage transitions for
// typical run sizes.
const eventBuffer = 64

// Pipeline runs a full research pass for one thesis. It owns all store
// writes; stages below it only read and return.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store // nil means dry run, nothing persisted
	llm      anthropic.Client
	adapters []source.Adapter
	sources  SourceSearcher
	enricher Enricher
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSourceSearcher enables the thesis-evidence sweep during discovery.
func WithSourceSearcher(s SourceSearcher) Option {
	return func(p *Pipeline) { p.sources = s }
}

// WithEnricher enables record enrichment for web-discovered candidates.
func WithEnricher(e Enricher) Option {
	return func(p *Pipeline) { p.enricher = e }
}

// New builds a Pipeline. A nil store disables persistence; the run still
// streams its full event sequence.
func New(cfg *config.Config, st store.Store, llm anthropic.Client, adapters []source.Adapter, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		store:    st,
		llm:      llm,
		adapters: adapters,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a research run and returns its event stream. The stream
// carries zero or more Progress and Company events and ends with exactly
// one terminal event, after which the channel is closed. The caller must
// drain the channel.
func (p *Pipeline) Run(ctx context.Context, thesisText string) <-chan Event {
	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)
		if err := p.run(ctx, thesisText, events); err != nil {
			zap.L().Error("run failed", zap.Error(err))
			events <- Error{Message: err.Error()}
		}
	}()
	return events
}

func (p *Pipeline) run(ctx context.Context, thesisText string, events chan<- Event) error {
	thesis, err := p.createThesis(ctx, thesisText)
	if err != nil {
		return err
	}

	// Plan. The one stage that fails the whole run.
	events <- Progress{Message: "expanding thesis into a research plan"}
	plan, usage, err := BuildPlan(ctx, p.llm, p.cfg.Anthropic, thesisText)
	if err != nil {
		return p.fail(ctx, thesis, err)
	}

	// Discover.
	events <- Progress{Message: fmt.Sprintf(
		"searching %d keywords and %d adjacent themes", len(plan.PrimaryKeywords), len(plan.AdjacentThemes))}
	disc := Discover(ctx, p.adapters, p.sources, plan, p.cfg.Pipeline)
	if len(disc.Candidates) == 0 {
		return p.complete(ctx, thesis, plan, nil, disc.Sources, usage, events,
			"No early-stage companies surfaced for this thesis. "+plan.Summary)
	}
	events <- Progress{Message: fmt.Sprintf("found %d candidate companies", len(disc.Candidates))}

	// Enrich, only when a company database is configured.
	if p.enricher != nil {
		events <- Progress{Message: "verifying candidates against the company database"}
		EnrichCandidates(ctx, p.enricher, disc.Candidates, p.cfg.Pipeline.EnrichmentBatch)
	}

	// Filter.
	events <- Progress{Message: "scoring candidates against the thesis"}
	kept, u := FilterCandidates(ctx, p.llm, p.cfg, thesisText, disc.Candidates)
	usage.Add(u)
	if len(kept) == 0 {
		return p.complete(ctx, thesis, plan, nil, disc.Sources, usage, events,
			fmt.Sprintf("All %d discovered companies scored below the fit threshold. %s",
				len(disc.Candidates), plan.Summary))
	}

	// Analyze. Like planning, an unparseable response fails the run.
	events <- Progress{Message: fmt.Sprintf("writing briefs for the top %d companies", min(len(kept), p.cfg.Pipeline.DeepAnalysisTopN))}
	analyzed, u, err := AnalyzeCandidates(ctx, p.llm, p.cfg, thesisText, kept)
	usage.Add(u)
	if err != nil {
		return p.fail(ctx, thesis, err)
	}

	// Company events stream as the analysis covered them; only the
	// terminal event carries the final ranking.
	for _, c := range analyzed {
		events <- Company{Record: c}
		if p.store != nil {
			if err := p.store.InsertCompany(ctx, thesis.ID, c); err != nil {
				zap.L().Warn("persist company failed", zap.String("name", c.Name), zap.Error(err))
			}
		}
	}

	ranked := make([]model.Candidate, len(analyzed))
	copy(ranked, analyzed)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})

	return p.complete(ctx, thesis, plan, ranked, disc.Sources, usage, events, plan.Summary)
}

func (p *Pipeline) createThesis(ctx context.Context, thesisText string) (*model.Thesis, error) {
	if p.store == nil {
		return &model.Thesis{Text: thesisText, Status: model.ThesisStatusRunning}, nil
	}
	thesis, err := p.store.CreateThesis(ctx, thesisText)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create thesis")
	}
	if err := p.store.UpdateThesisStatus(ctx, thesis.ID, model.ThesisStatusRunning); err != nil {
		return nil, eris.Wrap(err, "pipeline: mark running")
	}
	thesis.Status = model.ThesisStatusRunning
	return thesis, nil
}

// fail marks the thesis failed, best effort. The original error is what
// the caller needs to see; a failed status write must not mask it.
func (p *Pipeline) fail(ctx context.Context, thesis *model.Thesis, cause error) error {
	if p.store != nil && thesis.ID != "" {
		if err := p.store.UpdateThesisStatus(ctx, thesis.ID, model.ThesisStatusFailed); err != nil {
			zap.L().Warn("mark thesis failed", zap.String("id", thesis.ID), zap.Error(err))
		}
	}
	return cause
}

func (p *Pipeline) complete(ctx context.Context, thesis *model.Thesis, plan *model.QueryPlan, companies []model.Candidate, sources []model.ThesisSource, usage anthropic.TokenUsage, events chan<- Event, summary string) error {
	thesis.Status = model.ThesisStatusComplete
	thesis.Summary = summary
	thesis.PublicComps = plan.PublicComps
	thesis.AdjacentThemes = plan.AdjacentThemes
	thesis.Stats = countByDiscovery(companies)

	if p.store != nil {
		for _, s := range sources {
			if err := p.store.InsertFinding(ctx, thesis.ID, s); err != nil {
				zap.L().Warn("persist finding failed", zap.String("url", s.URL), zap.Error(err))
			}
		}
		if err := p.store.CompleteThesis(ctx, thesis); err != nil {
			return p.fail(ctx, thesis, eris.Wrap(err, "pipeline: complete thesis"))
		}
	}

	zap.L().Info("run complete",
		zap.String("id", thesis.ID),
		zap.Int("companies", len(companies)),
		zap.Int("findings", len(sources)),
		zap.Int64("input_tokens", usage.InputTokens),
		zap.Int64("output_tokens", usage.OutputTokens),
	)

	events <- Complete{
		Companies:      companies,
		PublicComps:    plan.PublicComps,
		Summary:        summary,
		AdjacentThemes: plan.AdjacentThemes,
		Stats:          thesis.Stats,
		ThesisSources:  sources,
	}
	return nil
}

// countByDiscovery tallies final companies by how discovery found them.
func countByDiscovery(companies []model.Candidate) model.DiscoveryStats {
	var stats model.DiscoveryStats
	for _, c := range companies {
		if c.DiscoverySource == model.DiscoveredAdjacentTheme {
			stats.AdjacentThemes++
		} else {
			stats.DirectThesis++
		}
	}
	return stats
}
