package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS predictions (
    id         TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    symptoms   TEXT NOT NULL,
    age        TEXT NOT NULL DEFAULT '',
    sex        TEXT NOT NULL DEFAULT '',
    duration   TEXT NOT NULL DEFAULT '',
    top_label  TEXT NOT NULL,
    top_prob   REAL NOT NULL,
    ranked     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_created_at_idx ON predictions (created_at DESC);`

// SQLite stores records in a local database file. created_at is kept as
// Unix nanoseconds.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

func (s *SQLite) SavePrediction(ctx context.Context, r Record) error {
	ranked, err := encodeRanked(r.Ranked)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, created_at, symptoms, age, sex, duration, top_label, top_prob, ranked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.CreatedAt.UnixNano(), r.Symptoms, r.Age, r.Sex, r.Duration, r.TopLabel, r.TopProb, string(ranked),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, symptoms, age, sex, duration, top_label, top_prob, ranked
		 FROM predictions ORDER BY created_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r       Record
			id      string
			created int64
			ranked  string
		)
		if err := rows.Scan(&id, &created, &r.Symptoms, &r.Age, &r.Sex, &r.Duration, &r.TopLabel, &r.TopProb, &ranked); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := decodeRecord(&r, id, []byte(ranked)); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
