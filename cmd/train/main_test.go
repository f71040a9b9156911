package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptomdx/internal/diagnostics"
)

func TestParseFlagsDefaults(t *testing.T) {
	t.Setenv("MODEL_PATH", "/tmp/custom.gob")
	opts, err := parseFlags(nil, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.gob", opts.modelPath)
	assert.Equal(t, 0.2, opts.testSize)
	assert.Equal(t, int64(42), opts.seed)
}

func TestParseFlagsRejectsTestSize(t *testing.T) {
	_, err := parseFlags([]string{"-test-size", "1.5"}, trainOptions{})
	assert.Error(t, err)
}

func TestRunSeedsTrainsAndSaves(t *testing.T) {
	dir := t.TempDir()
	opts := trainOptions{
		dataPath:   filepath.Join(dir, "data", "train.csv"),
		modelPath:  filepath.Join(dir, "model", "m.gob"),
		labelsPath: filepath.Join(dir, "model", "l.gob"),
		testSize:   0.2,
		seed:       42,
	}

	var out bytes.Buffer
	require.NoError(t, run(opts, &out))

	text := out.String()
	assert.Contains(t, text, "Created sample dataset")
	assert.Contains(t, text, "Loaded 10 training samples")
	assert.Contains(t, text, "Train set: 8 samples, Test set: 2 samples")
	assert.Contains(t, text, "Evaluation on test set:")
	assert.Contains(t, text, "accuracy")

	m, err := diagnostics.Load(opts.modelPath, opts.labelsPath)
	require.NoError(t, err)
	assert.Len(t, m.Labels(), 8)

	out.Reset()
	require.NoError(t, run(opts, &out))
	assert.NotContains(t, out.String(), "Created sample dataset")
}
