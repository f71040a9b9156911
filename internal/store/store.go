// Package store keeps an audit log of served predictions in Postgres or SQLite.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/features"
	"github.com/Skufu/symptomdx/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Record is one served prediction.
type Record struct {
	ID        uuid.UUID                `json:"id"`
	CreatedAt time.Time                `json:"createdAt"`
	Symptoms  string                   `json:"symptoms"`
	Age       string                   `json:"age,omitempty"`
	Sex       string                   `json:"sex,omitempty"`
	Duration  string                   `json:"duration,omitempty"`
	TopLabel  string                   `json:"topLabel"`
	TopProb   float64                  `json:"topProb"`
	Ranked    []diagnostics.Prediction `json:"ranked"`
}

// NewRecord captures sample and its ranking under a fresh ID.
func NewRecord(sample features.Sample, ranked []diagnostics.Prediction) Record {
	r := Record{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Symptoms:  sample.Symptoms,
		Age:       string(sample.Age),
		Sex:       sample.Sex,
		Duration:  string(sample.Duration),
		Ranked:    ranked,
	}
	if len(ranked) > 0 {
		r.TopLabel = ranked[0].Label
		r.TopProb = ranked[0].Prob
	}
	return r
}

// Store persists prediction records.
type Store interface {
	Migrate(ctx context.Context) error
	SavePrediction(ctx context.Context, r Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by driver and applies the schema.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn)
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	default:
		return nil, errors.NewValidationError("driver", "unsupported store driver", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, 500)
}

func encodeRanked(ranked []diagnostics.Prediction) ([]byte, error) {
	if ranked == nil {
		ranked = []diagnostics.Prediction{}
	}
	return json.Marshal(ranked)
}

func decodeRecord(r *Record, id string, ranked []byte) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return errors.Wrapf(errors.ErrCorruptData, "record id %q: %v", id, err)
	}
	r.ID = parsed
	if err := json.Unmarshal(ranked, &r.Ranked); err != nil {
		return errors.Wrapf(errors.ErrCorruptData, "record %s ranked: %v", id, err)
	}
	return nil
}
