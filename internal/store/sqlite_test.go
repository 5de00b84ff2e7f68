package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteThesisLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	th, err := s.CreateThesis(ctx, "autonomous trucking disrupts regional freight")
	require.NoError(t, err)
	assert.NotEmpty(t, th.ID)
	assert.Equal(t, model.ThesisStatusPending, th.Status)

	require.NoError(t, s.UpdateThesisStatus(ctx, th.ID, model.ThesisStatusRunning))

	got, err := s.GetThesis(ctx, th.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ThesisStatusRunning, got.Status)

	th.Status = model.ThesisStatusComplete
	th.Summary = "freight automation is investable now"
	th.PublicComps = []string{"TSLA", "JBHT"}
	th.AdjacentThemes = []model.AdjacentTheme{
		{Theme: "truck depot automation", Order: model.ThemeOrder2nd, Rationale: "driverless trucks still need yards"},
	}
	th.Stats = model.DiscoveryStats{DirectThesis: 4, AdjacentThemes: 2}
	require.NoError(t, s.CompleteThesis(ctx, th))

	got, err = s.GetThesis(ctx, th.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ThesisStatusComplete, got.Status)
	assert.Equal(t, "freight automation is investable now", got.Summary)
	assert.Equal(t, []string{"TSLA", "JBHT"}, got.PublicComps)
	require.Len(t, got.AdjacentThemes, 1)
	assert.Equal(t, model.ThemeOrder2nd, got.AdjacentThemes[0].Order)
	assert.Equal(t, 4, got.Stats.DirectThesis)
}

func TestSQLiteGetThesisNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.GetThesis(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteListTheses(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, text := range []string{"thesis a", "thesis b", "thesis c"} {
		_, err := s.CreateThesis(ctx, text)
		require.NoError(t, err)
	}

	theses, err := s.ListTheses(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, theses, 2)

	theses, err = s.ListTheses(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, theses, 3)
}

func TestSQLiteCompanyRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	th, err := s.CreateThesis(ctx, "thesis")
	require.NoError(t, err)

	stored := model.Candidate{
		Name:            "TruckCo",
		Description:     "Autonomous trucking for regional freight",
		Website:         "https://truckco.example",
		FoundedYear:     2021,
		LastFundingType: "seed",
		FundingStage:    model.StageEarly,
		Source:          model.SourceCrunchbase,
		DiscoverySource: model.DiscoveredPrimary,
		FitScore:        8,
		FitType:         model.FitDirect,
		ThesisRelevance: 9,
		Recency:         7,
		FoundingTeam:    5,
		TotalScore:      21,
	}
	require.NoError(t, s.InsertCompany(ctx, th.ID, stored))
	require.NoError(t, s.InsertCompany(ctx, th.ID, model.Candidate{Name: "DepotPilot", TotalScore: 17}))

	companies, err := s.ListCompaniesByThesis(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, companies, 2)

	// Highest total score first.
	got := companies[0]
	assert.Equal(t, "TruckCo", got.Name)
	assert.Equal(t, got.ThesisRelevance+got.Recency+got.FoundingTeam, got.TotalScore)
	assert.Equal(t, stored, got)
}

func TestSQLiteFindingsIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	th, err := s.CreateThesis(ctx, "thesis")
	require.NoError(t, err)

	src := model.ThesisSource{
		Title: "Patent US1234",
		URL:   "https://patents.google.com/patent/US1234",
		Type:  model.SourceTypePatent,
		Tier:  1,
	}
	require.NoError(t, s.InsertFinding(ctx, th.ID, src))
	require.NoError(t, s.InsertFinding(ctx, th.ID, src))

	findings, err := s.ListFindingsByThesis(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SourceTypePatent, findings[0].Type)
}

func TestSQLiteDeleteThesisCascades(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	th, err := s.CreateThesis(ctx, "thesis")
	require.NoError(t, err)
	require.NoError(t, s.InsertCompany(ctx, th.ID, model.Candidate{Name: "TruckCo"}))
	require.NoError(t, s.InsertFinding(ctx, th.ID, model.ThesisSource{URL: "https://example.com"}))

	require.NoError(t, s.DeleteThesis(ctx, th.ID))

	companies, err := s.ListCompaniesByThesis(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, companies)

	findings, err := s.ListFindingsByThesis(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
