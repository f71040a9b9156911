package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingTracker struct {
	errs []error
}

func (r *recordingTracker) CaptureError(_ context.Context, err error, _ map[string]string) error {
	r.errs = append(r.errs, err)
	return nil
}

func (r *recordingTracker) Flush(context.Context) error { return nil }

func TestInitFallsBackToInfoLevel(t *testing.T) {
	require.NoError(t, Init("not-a-level", "development"))
	assert.True(t, Get().Desugar().Core().Enabled(zap.InfoLevel))
	assert.False(t, Get().Desugar().Core().Enabled(zap.DebugLevel))
}

func TestErrorForwardsToTracker(t *testing.T) {
	tracker := &recordingTracker{}
	l := &Logger{SugaredLogger: zap.NewNop().Sugar(), errorTracker: tracker}

	l.Errorf("save failed: %s", "disk full")
	l.With("component", "test").Error("boom")

	require.Len(t, tracker.errs, 2)
	assert.Equal(t, "save failed: disk full", tracker.errs[0].Error())
	assert.Equal(t, "boom", tracker.errs[1].Error())
}
