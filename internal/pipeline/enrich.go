package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Enricher resolves a loosely-identified company into a verified record.
// Satisfied by the Crunchbase adapter.
type Enricher interface {
	Enrich(ctx context.Context, name, contextDesc string) *model.Candidate
}

// EnrichCandidates resolves web-discovered candidates against the company
// database in fixed-size batches, awaiting each batch fully before starting
// the next. The batching is the admission control against the enrichment
// provider; there is no formal rate limiter at this level.
//
// Enrichment mutates candidates in place: a verified record's fields
// replace the loose web-derived ones, and a no-match leaves the candidate
// untouched rather than guessing.
func EnrichCandidates(ctx context.Context, enricher Enricher, candidates []model.Candidate, batchSize int) int {
	if enricher == nil {
		return 0
	}
	if batchSize <= 0 {
		batchSize = 5
	}

	var pending []int
	for i, c := range candidates {
		if c.NeedsEnrichment {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return 0
	}

	enriched := 0
	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))

		g, gCtx := errgroup.WithContext(ctx)
		results := make([]*model.Candidate, end-start)
		for bi, idx := range pending[start:end] {
			c := candidates[idx]
			g.Go(func() error {
				results[bi] = enricher.Enrich(gCtx, c.Name, c.Description)
				return nil
			})
		}
		_ = g.Wait()

		for bi, idx := range pending[start:end] {
			rec := results[bi]
			if rec == nil {
				continue
			}
			applyEnrichment(&candidates[idx], rec)
			enriched++
		}
	}

	zap.L().Info("enrichment complete",
		zap.Int("pending", len(pending)),
		zap.Int("enriched", enriched),
	)
	return enriched
}

// applyEnrichment folds a verified record into a web-discovered candidate.
// Verified provider fields win; the candidate keeps its provenance and its
// original description when the provider has none.
func applyEnrichment(c *model.Candidate, rec *model.Candidate) {
	if rec.Description != "" {
		c.Description = rec.Description
	}
	c.Website = rec.Website
	c.FoundedYear = rec.FoundedYear
	c.FundingTotalUSD = rec.FundingTotalUSD
	c.LastFundingType = rec.LastFundingType
	c.OperatingStatus = rec.OperatingStatus
	c.FundingStage = model.ClassifyFundingStage(rec.LastFundingType)
	c.Verified = true
	c.NeedsEnrichment = false
	c.Sources = append(c.Sources, rec.Sources...)
}
