// Package source provides candidate source adapters: a uniform interface
// over the heterogeneous providers the discovery engine fans out across.
package source

import (
	"context"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Adapter turns a query string into normalized candidates.
//
// The fail-to-empty contract is load-bearing: an adapter returns nil on
// missing credentials, non-2xx responses, network failures, and malformed
// bodies, and never lets an error escape its boundary. Discovery runs
// adapter calls unsupervised inside a fan-out and does no per-call error
// handling.
type Adapter interface {
	Name() model.CandidateSource
	Search(ctx context.Context, query string, limit int) []model.Candidate
}
