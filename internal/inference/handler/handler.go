// Package handler exposes the inference service over HTTP.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
)

const maxBodyBytes = 1 << 20

const (
	endpointPredict    = "predict"
	endpointConfidence = "confidence"
)

// Predictor is the prediction surface of inference.Service.
type Predictor interface {
	Model() *inference.Model
	TopK() int
	Info() inference.Info
	Reload(ctx context.Context, trigger string) (inference.Info, error)
}

type Handler struct {
	predictor        Predictor
	cache            *cache.PredictionCache
	collector        *analytics.Collector
	metrics          *metrics.Metrics
	maxSymptomLength int
	logger           *slog.Logger
}

// New builds the handler. predictionCache, collector and m may be nil.
func New(p Predictor, predictionCache *cache.PredictionCache, collector *analytics.Collector, m *metrics.Metrics, maxSymptomLength int) *Handler {
	return &Handler{
		predictor:        p,
		cache:            predictionCache,
		collector:        collector,
		metrics:          m,
		maxSymptomLength: maxSymptomLength,
		logger:           slog.Default().With("component", "predict-handler"),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("POST /api/v1/predict", h.Predict)
	mux.HandleFunc("POST /api/v1/predict/confidence", h.PredictWithConfidence)
	mux.HandleFunc("GET /api/v1/model", h.ModelInfo)
	mux.HandleFunc("POST /api/v1/model/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type predictResponse struct {
	Disease string `json:"disease"`
}

type confidenceResponse struct {
	inference.ConfidenceResult
	CacheHit bool `json:"cache_hit"`
}

// Predict answers with the single most likely disease.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.predict(w, r, endpointPredict)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, predictResponse{Disease: res.PrimaryPrediction})
}

// PredictWithConfidence answers with the ranked top predictions.
func (h *Handler) PredictWithConfidence(w http.ResponseWriter, r *http.Request) {
	res, hit, ok := h.predict(w, r, endpointConfidence)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, confidenceResponse{ConfidenceResult: res, CacheHit: hit})
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request, endpoint string) (inference.ConfidenceResult, bool, bool) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	symptoms, err := h.decodeSymptoms(w, r)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return inference.ConfidenceResult{}, false, false
	}
	m := h.predictor.Model()
	if m == nil {
		h.writeError(w, http.StatusServiceUnavailable, apperrors.ErrModelUnavailable.Error())
		return inference.ConfidenceResult{}, false, false
	}

	// Score with m, not the service, so a concurrent reload cannot store
	// another model's result under m's key.
	compute := func() (inference.ConfidenceResult, error) {
		return m.PredictWithConfidence(symptoms, h.predictor.TopK())
	}
	var res inference.ConfidenceResult
	hit := false
	if h.cache != nil {
		res, hit, err = h.cache.GetOrCompute(ctx, m.ID(), symptoms, compute)
	} else {
		res, err = compute()
	}
	if err != nil {
		log.Error("prediction failed", "endpoint", endpoint, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "prediction failed")
		return inference.ConfidenceResult{}, false, false
	}

	latency := time.Since(start)
	blank := strings.TrimSpace(symptoms) == ""
	log.Info("prediction served",
		"endpoint", endpoint,
		"disease", res.PrimaryPrediction,
		"confidence", res.ConfidenceScore,
		"model_id", res.ModelID,
		"cache_hit", hit,
		"latency_ms", latency.Milliseconds(),
	)
	h.observe(endpoint, res, hit, blank, latency)
	if h.collector != nil {
		eventType := analytics.EventCacheMiss
		switch {
		case blank:
			eventType = analytics.EventBlankInput
		case hit:
			eventType = analytics.EventCacheHit
		}
		h.collector.Track(analytics.PredictionEvent{
			Type:       eventType,
			Disease:    res.PrimaryPrediction,
			Confidence: res.ConfidenceScore,
			BlankInput: blank || res.NoKnownSymptoms,
			CacheHit:   hit,
			LatencyMs:  latency.Milliseconds(),
			ModelID:    res.ModelID,
			Endpoint:   endpoint,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}
	return res, hit, true
}

// decodeSymptoms reads {"symptoms": "..."}; other fields are ignored.
func (h *Handler) decodeSymptoms(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "request body too large or unreadable")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "request body must be a JSON object")
	}
	raw, ok := fields["symptoms"]
	if !ok {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "symptoms is required")
	}
	var symptoms string
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) || json.Unmarshal(raw, &symptoms) != nil {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "symptoms must be a string")
	}
	if h.maxSymptomLength > 0 && utf8.RuneCountInString(symptoms) > h.maxSymptomLength {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"symptoms must be at most %d characters", h.maxSymptomLength)
	}
	return symptoms, nil
}

func (h *Handler) observe(endpoint string, res inference.ConfidenceResult, hit, blank bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if hit {
		status = "hit"
	}
	h.metrics.PredictionsTotal.WithLabelValues(res.PrimaryPrediction, endpoint).Inc()
	h.metrics.PredictionLatency.WithLabelValues(status).Observe(latency.Seconds())
	h.metrics.PredictionConfidence.Observe(res.ConfidenceScore)
	if blank || res.NoKnownSymptoms {
		h.metrics.BlankInputsTotal.Inc()
	}
}

func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	if h.predictor.Model() == nil {
		h.writeError(w, http.StatusServiceUnavailable, apperrors.ErrModelUnavailable.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.predictor.Info())
}

// Reload re-reads the artifact. A failed reload leaves the served model in
// place and reports it alongside the error.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	info, err := h.predictor.Reload(r.Context(), "api")
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if errors.Is(err, apperrors.ErrArtifactCorrupt) {
			status = http.StatusUnprocessableEntity
		}
		h.writeJSON(w, status, map[string]any{
			"error":         fmt.Sprintf("reload failed: %v", err),
			"serving_model": info.ModelID,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
