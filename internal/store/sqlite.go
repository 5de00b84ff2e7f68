package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/thesis-scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS theses (
	id              TEXT PRIMARY KEY,
	thesis_text     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	summary         TEXT NOT NULL DEFAULT '',
	public_comps    TEXT,
	adjacent_themes TEXT,
	stats           TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS companies (
	id          TEXT PRIMARY KEY,
	thesis_id   TEXT NOT NULL REFERENCES theses(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	fit_score   INTEGER NOT NULL DEFAULT 0,
	total_score INTEGER NOT NULL DEFAULT 0,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS findings (
	id         TEXT PRIMARY KEY,
	thesis_id  TEXT NOT NULL REFERENCES theses(id) ON DELETE CASCADE,
	url        TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (thesis_id, url)
);

CREATE INDEX IF NOT EXISTS idx_theses_status ON theses(status);
CREATE INDEX IF NOT EXISTS idx_companies_thesis_id ON companies(thesis_id);
CREATE INDEX IF NOT EXISTS idx_findings_thesis_id ON findings(thesis_id);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateThesis(ctx context.Context, text string) (*model.Thesis, error) {
	th := &model.Thesis{
		ID:        uuid.New().String(),
		Text:      text,
		Status:    model.ThesisStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO theses (id, thesis_text, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		th.ID, th.Text, th.Status, th.CreatedAt, th.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create thesis")
	}
	return th, nil
}

func (s *SQLiteStore) UpdateThesisStatus(ctx context.Context, id string, status model.ThesisStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE theses SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	return eris.Wrap(err, "sqlite: update thesis status")
}

func (s *SQLiteStore) CompleteThesis(ctx context.Context, thesis *model.Thesis) error {
	comps, err := json.Marshal(thesis.PublicComps)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal public comps")
	}
	themes, err := json.Marshal(thesis.AdjacentThemes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal adjacent themes")
	}
	stats, err := json.Marshal(thesis.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE theses SET status = ?, summary = ?, public_comps = ?, adjacent_themes = ?, stats = ?, updated_at = ? WHERE id = ?`,
		thesis.Status, thesis.Summary, string(comps), string(themes), string(stats), time.Now().UTC(), thesis.ID,
	)
	return eris.Wrap(err, "sqlite: complete thesis")
}

func (s *SQLiteStore) GetThesis(ctx context.Context, id string) (*model.Thesis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, thesis_text, status, summary, public_comps, adjacent_themes, stats, created_at, updated_at FROM theses WHERE id = ?`,
		id,
	)
	th, err := scanSQLiteThesis(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get thesis")
	}
	return th, nil
}

func (s *SQLiteStore) ListTheses(ctx context.Context, limit int) ([]model.Thesis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thesis_text, status, summary, public_comps, adjacent_themes, stats, created_at, updated_at FROM theses ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list theses")
	}
	defer rows.Close()

	var out []model.Thesis
	for rows.Next() {
		th, err := scanSQLiteThesis(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan thesis")
		}
		out = append(out, *th)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list theses rows")
}

func (s *SQLiteStore) DeleteThesis(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM theses WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete thesis")
}

func (s *SQLiteStore) InsertCompany(ctx context.Context, thesisID string, c model.Candidate) error {
	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal company")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO companies (id, thesis_id, name, fit_score, total_score, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), thesisID, c.Name, c.FitScore, c.TotalScore, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert company")
}

func (s *SQLiteStore) ListCompaniesByThesis(ctx context.Context, thesisID string) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM companies WHERE thesis_id = ? ORDER BY total_score DESC, name ASC`,
		thesisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		var c model.Candidate
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies rows")
}

func (s *SQLiteStore) InsertFinding(ctx context.Context, thesisID string, src model.ThesisSource) error {
	data, err := json.Marshal(src)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal finding")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO findings (id, thesis_id, url, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), thesisID, src.URL, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert finding")
}

func (s *SQLiteStore) ListFindingsByThesis(ctx context.Context, thesisID string) ([]model.ThesisSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM findings WHERE thesis_id = ? ORDER BY created_at ASC`,
		thesisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list findings")
	}
	defer rows.Close()

	var out []model.ThesisSource
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan finding")
		}
		var src model.ThesisSource
		if err := json.Unmarshal([]byte(data), &src); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal finding")
		}
		out = append(out, src)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list findings rows")
}

// scanSQLiteThesis reads one thesis row given a Scan func.
func scanSQLiteThesis(scan func(dest ...any) error) (*model.Thesis, error) {
	var (
		th     model.Thesis
		comps  sql.NullString
		themes sql.NullString
		stats  sql.NullString
	)
	if err := scan(&th.ID, &th.Text, &th.Status, &th.Summary, &comps, &themes, &stats, &th.CreatedAt, &th.UpdatedAt); err != nil {
		return nil, err
	}
	if comps.Valid && comps.String != "" {
		if err := json.Unmarshal([]byte(comps.String), &th.PublicComps); err != nil {
			return nil, eris.Wrap(err, "unmarshal public comps")
		}
	}
	if themes.Valid && themes.String != "" {
		if err := json.Unmarshal([]byte(themes.String), &th.AdjacentThemes); err != nil {
			return nil, eris.Wrap(err, "unmarshal adjacent themes")
		}
	}
	if stats.Valid && stats.String != "" {
		if err := json.Unmarshal([]byte(stats.String), &th.Stats); err != nil {
			return nil, eris.Wrap(err, "unmarshal stats")
		}
	}
	return &th, nil
}
