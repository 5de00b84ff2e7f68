package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/pipeline"
	"github.com/sells-group/thesis-scout/internal/source"
	"github.com/sells-group/thesis-scout/internal/store"
	anthropicpkg "github.com/sells-group/thesis-scout/pkg/anthropic"
	"github.com/sells-group/thesis-scout/pkg/crunchbase"
	"github.com/sells-group/thesis-scout/pkg/tavily"
)

// scoutEnv holds the initialized store, clients, and pipeline shared by the
// run, batch, and serve commands.
type scoutEnv struct {
	Store    store.Store // nil in dry-run mode
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *scoutEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initPipeline sets up the store, API clients, and source adapters, and
// builds the Pipeline. Callers should defer env.Close(). With dryRun set,
// no store is opened and nothing is persisted.
func initPipeline(ctx context.Context, dryRun bool) (*scoutEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (SCOUT_ANTHROPIC_KEY)")
	}

	var st store.Store
	if !dryRun {
		s, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		st = s
	}

	llm := anthropicpkg.NewClient(cfg.Anthropic.Key)

	var (
		adapters []source.Adapter
		opts     []pipeline.Option
	)

	if cfg.Crunchbase.Key != "" {
		cbClient := crunchbase.NewClient(cfg.Crunchbase.Key,
			crunchbase.WithBaseURL(cfg.Crunchbase.BaseURL),
			crunchbase.WithRateLimit(cfg.Crunchbase.RateLimit),
		)
		cb := source.NewCrunchbaseAdapter(cbClient, cfg.Crunchbase.FoundedAfter)
		adapters = append(adapters, cb)
		opts = append(opts, pipeline.WithEnricher(cb))
	} else {
		zap.L().Warn("SCOUT_CRUNCHBASE_KEY not set, structured discovery and enrichment disabled")
	}

	if cfg.Tavily.Key != "" {
		web := source.NewWebAdapter(
			tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL)),
			cfg.Tavily.FreshnessDays,
		)
		adapters = append(adapters, web)
		opts = append(opts, pipeline.WithSourceSearcher(web))
	} else {
		zap.L().Warn("SCOUT_TAVILY_KEY not set, web discovery disabled")
	}

	if len(adapters) == 0 {
		if st != nil {
			_ = st.Close()
		}
		return nil, eris.New("no discovery sources configured: set SCOUT_CRUNCHBASE_KEY or SCOUT_TAVILY_KEY")
	}

	return &scoutEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, llm, adapters, opts...),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.DatabaseURL
	if cfg.Store.Driver == "sqlite" && dsn == "" {
		dsn = "scout.db"
	}
	return store.Open(ctx, cfg.Store.Driver, dsn)
}
