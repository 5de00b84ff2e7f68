// Package store provides persistence for theses, discovered companies, and
// thesis-level findings.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Store defines the persistence interface for research runs. The pipeline
// orchestrator is the only writer; one write per discovered company and one
// final update per run, no transaction spanning stages.
type Store interface {
	// Theses
	CreateThesis(ctx context.Context, text string) (*model.Thesis, error)
	UpdateThesisStatus(ctx context.Context, id string, status model.ThesisStatus) error
	CompleteThesis(ctx context.Context, thesis *model.Thesis) error
	GetThesis(ctx context.Context, id string) (*model.Thesis, error)
	ListTheses(ctx context.Context, limit int) ([]model.Thesis, error)
	DeleteThesis(ctx context.Context, id string) error

	// Companies
	InsertCompany(ctx context.Context, thesisID string, c model.Candidate) error
	ListCompaniesByThesis(ctx context.Context, thesisID string) ([]model.Candidate, error)

	// Findings
	InsertFinding(ctx context.Context, thesisID string, src model.ThesisSource) error
	ListFindingsByThesis(ctx context.Context, thesisID string) ([]model.ThesisSource, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, databaseURL, nil)
	case "sqlite":
		return NewSQLite(databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
