package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formval/pkg/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dynamic_options (
	document_id      TEXT NOT NULL,
	question         TEXT NOT NULL,
	slug             TEXT NOT NULL,
	label            TEXT NOT NULL,
	created_by_user  TEXT NOT NULL DEFAULT '',
	created_by_group TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	PRIMARY KEY (document_id, question, slug)
)`

// SQLite stores dynamic options in a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ DynamicOptionStore = (*SQLite)(nil)

// OpenSQLite connects to the database at dsn, applies pragmas and creates the
// schema when missing.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps in-memory databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetOrCreate(ctx context.Context, opt model.DynamicOption) (model.DynamicOption, bool, error) {
	if err := checkKey(opt); err != nil {
		return model.DynamicOption{}, false, err
	}
	opt = stamp(opt, s.now)

	res, err := s.db.ExecContext(ctx, `
INSERT INTO dynamic_options (document_id, question, slug, label, created_by_user, created_by_group, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (document_id, question, slug) DO NOTHING`,
		opt.DocumentID, opt.Question, opt.Slug, opt.Label,
		opt.CreatedByUser, opt.CreatedByGroup, opt.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.DynamicOption{}, false, fmt.Errorf("insert dynamic option: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.DynamicOption{}, false, fmt.Errorf("insert dynamic option: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
SELECT document_id, question, slug, label, created_by_user, created_by_group, created_at
FROM dynamic_options
WHERE document_id = ? AND question = ? AND slug = ?`,
		opt.DocumentID, opt.Question, opt.Slug,
	)
	stored, err := scanOption(row)
	if err != nil {
		return model.DynamicOption{}, false, fmt.Errorf("load dynamic option: %w", err)
	}
	return stored, affected > 0, nil
}

func (s *SQLite) List(ctx context.Context, documentID string) ([]model.DynamicOption, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT document_id, question, slug, label, created_by_user, created_by_group, created_at
FROM dynamic_options
WHERE document_id = ?
ORDER BY question, slug`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list dynamic options: %w", err)
	}
	defer rows.Close()

	out := make([]model.DynamicOption, 0)
	for rows.Next() {
		opt, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("list dynamic options: %w", err)
		}
		out = append(out, opt)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOption(row scanner) (model.DynamicOption, error) {
	var (
		opt       model.DynamicOption
		createdAt string
	)
	if err := row.Scan(&opt.DocumentID, &opt.Question, &opt.Slug, &opt.Label,
		&opt.CreatedByUser, &opt.CreatedByGroup, &createdAt); err != nil {
		return model.DynamicOption{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.DynamicOption{}, fmt.Errorf("parse created_at: %w", err)
	}
	opt.CreatedAt = ts
	return opt, nil
}
