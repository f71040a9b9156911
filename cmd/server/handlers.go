package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/explain"
	"github.com/Skufu/symptomdx/internal/metrics"
	"github.com/Skufu/symptomdx/internal/store"
	"github.com/Skufu/symptomdx/pkg/errors"
)

type diagnoseResponse struct {
	ID          string                   `json:"id"`
	Ranked      []diagnostics.Prediction `json:"ranked"`
	Explanation explain.Result           `json:"explanation"`
}

func (s *server) readyz(c *gin.Context) {
	body := gin.H{"status": "ok", "model": "loaded", "db": "disabled"}
	status := http.StatusOK

	if !s.models.Current().Trained() {
		body["model"] = "missing"
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	if s.store != nil {
		var db HealthChecker = s.store
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body["db"] = "ok"
		if err := db.Ping(ctx); err != nil {
			body["db"] = fmt.Sprintf("unhealthy: %v", err)
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, body)
}

func (s *server) diagnose(c *gin.Context) {
	start := time.Now()

	var payload explain.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		metrics.RecordPrediction("invalid", 0, "")
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		case errors.Is(err, errors.ErrNumericParse):
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		}
		return
	}

	if strings.TrimSpace(payload.Symptoms) == "" {
		metrics.RecordPrediction("invalid", 0, "")
		s.respondError(c, errors.NewValidationError("symptoms", "at least one symptom is required", payload.Symptoms))
		return
	}

	model := s.models.Current()
	if !model.Trained() {
		metrics.RecordPrediction("unavailable", 0, "")
		s.respondError(c, errors.ErrNotTrained)
		return
	}

	ranked, err := model.PredictProba(payload.Sample)
	if err != nil {
		metrics.RecordPrediction(predictionStatus(err), 0, "")
		s.respondError(c, err)
		return
	}

	record := store.NewRecord(payload.Sample, ranked)
	metrics.RecordPrediction("success", time.Since(start), record.TopLabel)

	result := s.explainer.Generate(c.Request.Context(), payload, ranked)

	if s.store != nil {
		if err := s.store.SavePrediction(c.Request.Context(), record); err != nil {
			s.log.Errorw("saving prediction failed", "id", record.ID.String(), "error", err)
		}
	}

	c.JSON(http.StatusOK, diagnoseResponse{
		ID:          record.ID.String(),
		Ranked:      ranked,
		Explanation: result,
	})
}

func (s *server) predictions(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(c, errors.NewValidationError("limit", "must be a positive integer", raw))
			return
		}
		limit = n
	}

	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"predictions": []store.Record{}, "db": "disabled"})
		return
	}

	records, err := s.store.Recent(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": records})
}

func (s *server) reloadModel(c *gin.Context) {
	model, err := s.loadModel()
	metrics.RecordModelLoad(err)
	if err != nil {
		s.log.Warnw("model reload failed", "error", err)
		if errors.Is(err, errors.ErrNotFound) && !errors.Is(err, errors.ErrCorruptData) {
			c.JSON(http.StatusNotFound, gin.H{"error": "model_not_found", "message": err.Error()})
			return
		}
		s.respondError(c, err)
		return
	}

	s.models.Replace(model)
	s.log.Infow("model reloaded", "labels", len(model.Labels()))
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "labels": model.Labels()})
}

func predictionStatus(err error) string {
	if errors.Is(err, errors.ErrValidation) || errors.Is(err, errors.ErrNumericParse) {
		return "invalid"
	}
	return "error"
}

// respondError maps domain errors onto HTTP statuses.
func (s *server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errors.ErrValidation), errors.Is(err, errors.ErrNumericParse):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": err.Error()})
	case errors.Is(err, errors.ErrNotTrained):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model_not_loaded", "message": "no trained model is loaded"})
	default:
		s.log.Errorw("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
