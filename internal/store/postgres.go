package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS predictions (
    id         UUID PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL,
    symptoms   TEXT NOT NULL,
    age        TEXT NOT NULL DEFAULT '',
    sex        TEXT NOT NULL DEFAULT '',
    duration   TEXT NOT NULL DEFAULT '',
    top_label  TEXT NOT NULL,
    top_prob   DOUBLE PRECISION NOT NULL,
    ranked     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_created_at_idx ON predictions (created_at DESC);`

// Postgres stores records through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and pings the database at url.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSchema)
	return err
}

func (p *Postgres) SavePrediction(ctx context.Context, r Record) error {
	ranked, err := encodeRanked(r.Ranked)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO predictions (id, created_at, symptoms, age, sex, duration, top_label, top_prob, ranked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID.String(), r.CreatedAt, r.Symptoms, r.Age, r.Sex, r.Duration, r.TopLabel, r.TopProb, ranked,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id::text, created_at, symptoms, age, sex, duration, top_label, top_prob, ranked
		 FROM predictions ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r      Record
			id     string
			ranked []byte
		)
		if err := rows.Scan(&id, &r.CreatedAt, &r.Symptoms, &r.Age, &r.Sex, &r.Duration, &r.TopLabel, &r.TopProb, &ranked); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := decodeRecord(&r, id, ranked); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
