package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/features"
	"github.com/Skufu/symptomdx/pkg/errors"
)

var sample = features.Sample{Symptoms: "fever cough", Age: "29", Sex: "female", Duration: "3"}

var ranked = []diagnostics.Prediction{
	{Label: "Common Cold", Prob: 0.7},
	{Label: "Influenza", Prob: 0.3},
}

func TestNewRecord(t *testing.T) {
	r := NewRecord(sample, ranked)
	assert.NotEqual(t, [16]byte{}, [16]byte(r.ID))
	assert.Equal(t, "Common Cold", r.TopLabel)
	assert.Equal(t, 0.7, r.TopProb)
	assert.Equal(t, "29", r.Age)

	empty := NewRecord(features.Sample{Symptoms: "x"}, nil)
	assert.Empty(t, empty.TopLabel)
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	older := NewRecord(sample, ranked)
	older.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	newer := NewRecord(features.Sample{Symptoms: "rash"}, []diagnostics.Prediction{{Label: "Dermatitis", Prob: 1}})
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)

	require.NoError(t, s.SavePrediction(ctx, older))
	require.NoError(t, s.SavePrediction(ctx, newer))
	assert.Error(t, s.SavePrediction(ctx, older), "duplicate id")

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older, got[1])

	got, err = s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteStore(t *testing.T) {
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "db", "predictions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))

	got, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0))
	assert.Equal(t, 5, clampLimit(5))
	assert.Equal(t, 500, clampLimit(10_000))
}

// Runs against a real database when TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, DriverPostgres, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	pg := s.(*Postgres)
	_, err = pg.pool.Exec(ctx, "TRUNCATE predictions")
	require.NoError(t, err)

	exerciseStore(t, s)
}
