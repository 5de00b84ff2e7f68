package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/thesis-scout/internal/db"
	"github.com/sells-group/thesis-scout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS theses (
	id              TEXT PRIMARY KEY,
	thesis_text     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	summary         TEXT NOT NULL DEFAULT '',
	public_comps    JSONB,
	adjacent_themes JSONB,
	stats           JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	id          TEXT PRIMARY KEY,
	thesis_id   TEXT NOT NULL REFERENCES theses(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	fit_score   INTEGER NOT NULL DEFAULT 0,
	total_score INTEGER NOT NULL DEFAULT 0,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS findings (
	id         TEXT PRIMARY KEY,
	thesis_id  TEXT NOT NULL REFERENCES theses(id) ON DELETE CASCADE,
	url        TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (thesis_id, url)
);

CREATE INDEX IF NOT EXISTS idx_theses_status ON theses(status);
CREATE INDEX IF NOT EXISTS idx_companies_thesis_id ON companies(thesis_id);
CREATE INDEX IF NOT EXISTS idx_findings_thesis_id ON findings(thesis_id);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateThesis(ctx context.Context, text string) (*model.Thesis, error) {
	th := &model.Thesis{
		ID:        uuid.New().String(),
		Text:      text,
		Status:    model.ThesisStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO theses (id, thesis_text, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		th.ID, th.Text, th.Status, th.CreatedAt, th.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create thesis")
	}
	return th, nil
}

func (s *PostgresStore) UpdateThesisStatus(ctx context.Context, id string, status model.ThesisStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE theses SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	return eris.Wrap(err, "postgres: update thesis status")
}

func (s *PostgresStore) CompleteThesis(ctx context.Context, thesis *model.Thesis) error {
	comps, err := json.Marshal(thesis.PublicComps)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal public comps")
	}
	themes, err := json.Marshal(thesis.AdjacentThemes)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal adjacent themes")
	}
	stats, err := json.Marshal(thesis.Stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE theses SET status = $1, summary = $2, public_comps = $3, adjacent_themes = $4, stats = $5, updated_at = $6 WHERE id = $7`,
		thesis.Status, thesis.Summary, comps, themes, stats, time.Now().UTC(), thesis.ID,
	)
	return eris.Wrap(err, "postgres: complete thesis")
}

func (s *PostgresStore) GetThesis(ctx context.Context, id string) (*model.Thesis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, thesis_text, status, summary, public_comps, adjacent_themes, stats, created_at, updated_at FROM theses WHERE id = $1`,
		id,
	)
	th, err := scanThesis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get thesis")
	}
	return th, nil
}

func (s *PostgresStore) ListTheses(ctx context.Context, limit int) ([]model.Thesis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, thesis_text, status, summary, public_comps, adjacent_themes, stats, created_at, updated_at FROM theses ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list theses")
	}
	defer rows.Close()

	var out []model.Thesis
	for rows.Next() {
		th, err := scanThesis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan thesis")
		}
		out = append(out, *th)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list theses rows")
}

func (s *PostgresStore) DeleteThesis(ctx context.Context, id string) error {
	// companies and findings rows go with it via ON DELETE CASCADE.
	_, err := s.pool.Exec(ctx, `DELETE FROM theses WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: delete thesis")
}

func (s *PostgresStore) InsertCompany(ctx context.Context, thesisID string, c model.Candidate) error {
	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal company")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO companies (id, thesis_id, name, fit_score, total_score, data, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), thesisID, c.Name, c.FitScore, c.TotalScore, data, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert company")
}

// InsertCompanies bulk-loads company rows via COPY. Used by importers; the
// pipeline itself writes one row per company as each analysis completes.
func (s *PostgresStore) InsertCompanies(ctx context.Context, thesisID string, cs []model.Candidate) (int64, error) {
	rows := make([][]any, 0, len(cs))
	now := time.Now().UTC()
	for _, c := range cs {
		data, err := json.Marshal(c)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal company")
		}
		rows = append(rows, []any{uuid.New().String(), thesisID, c.Name, c.FitScore, c.TotalScore, data, now})
	}
	return db.CopyFrom(ctx, s.pool, "companies",
		[]string{"id", "thesis_id", "name", "fit_score", "total_score", "data", "created_at"}, rows)
}

func (s *PostgresStore) ListCompaniesByThesis(ctx context.Context, thesisID string) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM companies WHERE thesis_id = $1 ORDER BY total_score DESC, name ASC`,
		thesisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		var c model.Candidate
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies rows")
}

func (s *PostgresStore) InsertFinding(ctx context.Context, thesisID string, src model.ThesisSource) error {
	data, err := json.Marshal(src)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal finding")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO findings (id, thesis_id, url, data, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (thesis_id, url) DO NOTHING`,
		uuid.New().String(), thesisID, src.URL, data, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert finding")
}

func (s *PostgresStore) ListFindingsByThesis(ctx context.Context, thesisID string) ([]model.ThesisSource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM findings WHERE thesis_id = $1 ORDER BY created_at ASC`,
		thesisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list findings")
	}
	defer rows.Close()

	var out []model.ThesisSource
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan finding")
		}
		var src model.ThesisSource
		if err := json.Unmarshal(data, &src); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal finding")
		}
		out = append(out, src)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list findings rows")
}

// scanThesis reads one thesis row from a pgx.Row or pgx.Rows.
func scanThesis(row pgx.Row) (*model.Thesis, error) {
	var (
		th     model.Thesis
		comps  []byte
		themes []byte
		stats  []byte
	)
	if err := row.Scan(&th.ID, &th.Text, &th.Status, &th.Summary, &comps, &themes, &stats, &th.CreatedAt, &th.UpdatedAt); err != nil {
		return nil, err
	}
	if len(comps) > 0 {
		if err := json.Unmarshal(comps, &th.PublicComps); err != nil {
			return nil, eris.Wrap(err, "unmarshal public comps")
		}
	}
	if len(themes) > 0 {
		if err := json.Unmarshal(themes, &th.AdjacentThemes); err != nil {
			return nil, eris.Wrap(err, "unmarshal adjacent themes")
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &th.Stats); err != nil {
			return nil, eris.Wrap(err, "unmarshal stats")
		}
	}
	return &th, nil
}
