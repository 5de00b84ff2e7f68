package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateThesis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO theses`).
		WithArgs(pgxmock.AnyArg(), "autonomous trucking disrupts regional freight", model.ThesisStatusPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	th, err := s.CreateThesis(context.Background(), "autonomous trucking disrupts regional freight")
	require.NoError(t, err)
	assert.NotEmpty(t, th.ID)
	assert.Equal(t, model.ThesisStatusPending, th.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateThesisStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE theses SET status`).
		WithArgs(model.ThesisStatusRunning, pgxmock.AnyArg(), "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateThesisStatus(context.Background(), "t-1", model.ThesisStatusRunning)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetThesis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, thesis_text, status, summary, public_comps, adjacent_themes, stats, created_at, updated_at FROM theses WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	th, err := s.GetThesis(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, th)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetThesis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	themes, _ := json.Marshal([]model.AdjacentTheme{{Theme: "depot automation", Order: model.ThemeOrder2nd}})
	stats, _ := json.Marshal(model.DiscoveryStats{DirectThesis: 3, AdjacentThemes: 2})

	mock.ExpectQuery(`SELECT id, thesis_text, status, summary, public_comps, adjacent_themes, stats, created_at, updated_at FROM theses WHERE id = \$1`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "thesis_text", "status", "summary", "public_comps", "adjacent_themes", "stats", "created_at", "updated_at",
		}).AddRow("t-1", "thesis text", model.ThesisStatusComplete, "summary", []byte(`["TSLA"]`), []byte(themes), []byte(stats), now, now))

	th, err := s.GetThesis(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, th)
	assert.Equal(t, model.ThesisStatusComplete, th.Status)
	assert.Equal(t, []string{"TSLA"}, th.PublicComps)
	require.Len(t, th.AdjacentThemes, 1)
	assert.Equal(t, model.ThemeOrder2nd, th.AdjacentThemes[0].Order)
	assert.Equal(t, 3, th.Stats.DirectThesis)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteThesis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE theses SET status = \$1, summary = \$2`).
		WithArgs(model.ThesisStatusComplete, "done", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteThesis(context.Background(), &model.Thesis{
		ID:      "t-1",
		Status:  model.ThesisStatusComplete,
		Summary: "done",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteThesis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM theses WHERE id = \$1`).
		WithArgs("t-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteThesis(context.Background(), "t-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO companies`).
		WithArgs(pgxmock.AnyArg(), "t-1", "TruckCo", 8, 21, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.InsertCompany(context.Background(), "t-1", model.Candidate{
		Name:       "TruckCo",
		FitScore:   8,
		TotalScore: 21,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCompaniesByThesis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	one, _ := json.Marshal(model.Candidate{Name: "TruckCo", TotalScore: 21})
	two, _ := json.Marshal(model.Candidate{Name: "DepotPilot", TotalScore: 17})

	mock.ExpectQuery(`SELECT data FROM companies WHERE thesis_id = \$1`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(one).AddRow(two))

	companies, err := s.ListCompaniesByThesis(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "TruckCo", companies[0].Name)
	assert.Equal(t, 17, companies[1].TotalScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertFinding_Idempotent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO findings .* ON CONFLICT \(thesis_id, url\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "t-1", "https://arxiv.org/abs/1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := s.InsertFinding(context.Background(), "t-1", model.ThesisSource{
		URL:  "https://arxiv.org/abs/1",
		Type: model.SourceTypePaper,
		Tier: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCompanies_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"companies"},
		[]string{"id", "thesis_id", "name", "fit_score", "total_score", "data", "created_at"}).
		WillReturnResult(2)

	n, err := s.InsertCompanies(context.Background(), "t-1", []model.Candidate{
		{Name: "TruckCo"}, {Name: "DepotPilot"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS theses`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
