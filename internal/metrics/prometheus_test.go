package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPrediction(t *testing.T) {
	before := testutil.ToFloat64(Predictions.WithLabelValues("success"))
	beforeTop := testutil.ToFloat64(TopLabel.WithLabelValues("Migraine"))

	RecordPrediction("success", time.Millisecond, "Migraine")
	RecordPrediction("invalid", 0, "")

	assert.Equal(t, before+1, testutil.ToFloat64(Predictions.WithLabelValues("success")))
	assert.Equal(t, beforeTop+1, testutil.ToFloat64(TopLabel.WithLabelValues("Migraine")))
}

func TestRecordModelLoad(t *testing.T) {
	RecordModelLoad(errors.New("missing"))
	assert.Equal(t, 0.0, testutil.ToFloat64(ModelLoaded))

	RecordModelLoad(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(ModelLoaded))
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	Init()
	RecordExplanation("disabled", 0)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "symptomdx_explanations_total"))
}
