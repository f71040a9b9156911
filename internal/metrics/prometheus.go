package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symptomdx_predictions_total",
			Help: "Total number of diagnose requests",
		},
		[]string{"status"}, // status: success|invalid|unavailable|error
	)

	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "symptomdx_prediction_duration_seconds",
			Help:    "Feature assembly plus inference latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	TopLabel = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symptomdx_top_label_total",
			Help: "Number of predictions ranking each condition first",
		},
		[]string{"label"},
	)

	Explanations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symptomdx_explanations_total",
			Help: "Explanation attempts by outcome",
		},
		[]string{"status"}, // status: success|cached|disabled|error
	)

	ExplanationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "symptomdx_explanation_latency_seconds",
			Help:    "Upstream explanation call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	ModelReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symptomdx_model_reloads_total",
			Help: "Model load attempts by outcome",
		},
		[]string{"status"},
	)

	ModelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "symptomdx_model_loaded",
			Help: "1 when a trained model is serving",
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Predictions)
		prometheus.MustRegister(PredictionDuration)
		prometheus.MustRegister(TopLabel)
		prometheus.MustRegister(Explanations)
		prometheus.MustRegister(ExplanationLatency)
		prometheus.MustRegister(ModelReloads)
		prometheus.MustRegister(ModelLoaded)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPrediction records one diagnose outcome.
func RecordPrediction(status string, duration time.Duration, top string) {
	Predictions.WithLabelValues(status).Inc()
	if status != "success" {
		return
	}
	PredictionDuration.Observe(duration.Seconds())
	if top != "" {
		TopLabel.WithLabelValues(top).Inc()
	}
}

// RecordExplanation records one explanation attempt. Latency is observed only
// for calls that reached the upstream.
func RecordExplanation(status string, latency time.Duration) {
	Explanations.WithLabelValues(status).Inc()
	if latency > 0 {
		ExplanationLatency.Observe(latency.Seconds())
	}
}

// RecordModelLoad records a load or reload and updates the serving gauge.
func RecordModelLoad(err error) {
	if err != nil {
		ModelReloads.WithLabelValues("error").Inc()
		return
	}
	ModelReloads.WithLabelValues("success").Inc()
	ModelLoaded.Set(1)
}
