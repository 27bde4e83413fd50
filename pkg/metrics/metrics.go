// Package metrics defines the Prometheus metric collectors used by the
// trainer, predictor, corpus and analytics services and exposes an HTTP
// handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	PredictionsTotal     *prometheus.CounterVec
	PredictionLatency    *prometheus.HistogramVec
	PredictionConfidence prometheus.Histogram
	BlankInputsTotal     prometheus.Counter

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal prometheus.Counter

	ModelReloadsTotal    *prometheus.CounterVec
	ModelVocabularySize  prometheus.Gauge
	ModelClasses         prometheus.Gauge
	ModelLoadedTimestamp prometheus.Gauge

	TrainingRunsTotal *prometheus.CounterVec
	TrainingDuration  prometheus.Histogram
	TrainingAccuracy  *prometheus.GaugeVec

	ExamplesIngestedTotal prometheus.Counter
	AnalyticsEventsTotal  *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so that several instances can coexist.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symptom_predictions_total",
				Help: "Predictions served by predicted disease and endpoint.",
			},
			[]string{"disease", "endpoint"},
		),
		PredictionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "symptom_prediction_latency_seconds",
				Help:    "Prediction latency in seconds by cache status.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"cache_status"},
		),
		PredictionConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "symptom_prediction_confidence",
				Help:    "Posterior probability of the primary prediction.",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99},
			},
		),
		BlankInputsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "symptom_blank_inputs_total",
				Help: "Predictions requested with no in-vocabulary symptom terms.",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prediction_cache_hits_total",
				Help: "Prediction cache hits by tier (local, redis).",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prediction_cache_misses_total",
				Help: "Prediction cache misses.",
			},
		),
		ModelReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_reloads_total",
				Help: "Model reload attempts by trigger and status.",
			},
			[]string{"trigger", "status"},
		),
		ModelVocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_vocabulary_size",
				Help: "Vocabulary size of the served model.",
			},
		),
		ModelClasses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_classes",
				Help: "Number of diseases the served model can predict.",
			},
		),
		ModelLoadedTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_loaded_timestamp_seconds",
				Help: "Unix time at which the served model was loaded.",
			},
		),
		TrainingRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "training_runs_total",
				Help: "Training runs by status.",
			},
			[]string{"status"},
		),
		TrainingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "training_duration_seconds",
				Help:    "Wall time of a complete training run.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		TrainingAccuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "training_accuracy",
				Help: "Accuracy of the last trained model by split.",
			},
			[]string{"split"},
		),
		ExamplesIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_examples_ingested_total",
				Help: "Labeled examples accepted by the corpus service.",
			},
		),
		AnalyticsEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_events_total",
				Help: "Prediction events by outcome (published, dropped, consumed).",
			},
			[]string{"outcome"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PredictionsTotal,
		m.PredictionLatency,
		m.PredictionConfidence,
		m.BlankInputsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ModelReloadsTotal,
		m.ModelVocabularySize,
		m.ModelClasses,
		m.ModelLoadedTimestamp,
		m.TrainingRunsTotal,
		m.TrainingDuration,
		m.TrainingAccuracy,
		m.ExamplesIngestedTotal,
		m.AnalyticsEventsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
