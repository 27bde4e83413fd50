package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
)

const maxLatencySamples = 100000

type AggregatedStats struct {
	TotalPredictions     int64          `json:"total_predictions"`
	BlankInputs          int64          `json:"blank_inputs"`
	LowConfidence        int64          `json:"low_confidence"`
	CacheHits            int64          `json:"cache_hits"`
	CacheMisses          int64          `json:"cache_misses"`
	AvgConfidence        float64        `json:"avg_confidence"`
	AvgLatencyMs         float64        `json:"avg_latency_ms"`
	P50LatencyMs         int64          `json:"p50_latency_ms"`
	P95LatencyMs         int64          `json:"p95_latency_ms"`
	P99LatencyMs         int64          `json:"p99_latency_ms"`
	TopDiseases          []DiseaseCount `json:"top_diseases"`
	Models               []ModelCount   `json:"models"`
	PredictionsPerMinute float64        `json:"predictions_per_minute"`
}

type DiseaseCount struct {
	Disease string `json:"disease"`
	Count   int64  `json:"count"`
}

type ModelCount struct {
	ModelID string `json:"model_id"`
	Count   int64  `json:"count"`
}

type Aggregator struct {
	mu            sync.RWMutex
	total         atomic.Int64
	blank         atomic.Int64
	lowConfidence atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	confidenceSum float64
	latencies     []int64
	diseaseCounts map[string]int64
	modelCounts   map[string]int64
	startTime     time.Time
	topN          int
	threshold     float64

	consumer *kafka.Consumer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAggregator creates an aggregator. consumer may be nil when events are
// fed through Record directly.
func NewAggregator(consumer *kafka.Consumer, cfg config.AnalyticsConfig, m *metrics.Metrics) *Aggregator {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.LowConfidence <= 0 {
		cfg.LowConfidence = LowConfidenceThreshold
	}
	return &Aggregator{
		topN:          cfg.TopN,
		threshold:     cfg.LowConfidence,
		latencies:     make([]int64, 0, 10000),
		diseaseCounts: make(map[string]int64),
		modelCounts:   make(map[string]int64),
		startTime:     time.Now(),
		consumer:      consumer,
		metrics:       m,
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
}

// SetConsumer attaches the Kafka consumer Start reads from.
func (a *Aggregator) SetConsumer(consumer *kafka.Consumer) {
	a.consumer = consumer
}

func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes prediction events. Undecodable messages are logged and
// skipped so one bad message cannot stall the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[PredictionEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			agg.count("invalid")
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event PredictionEvent) {
	a.total.Add(1)
	a.count("recorded")
	if event.BlankInput {
		a.blank.Add(1)
	}
	if event.Confidence < a.threshold {
		a.lowConfidence.Add(1)
	}
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}

	a.mu.Lock()
	a.confidenceSum += event.Confidence
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.total.Load()%maxLatencySamples] = event.LatencyMs
	}
	if event.Disease != "" {
		a.diseaseCounts[event.Disease]++
	}
	if event.ModelID != "" {
		a.modelCounts[event.ModelID]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) count(outcome string) {
	if a.metrics != nil {
		a.metrics.AnalyticsEventsTotal.WithLabelValues(outcome).Inc()
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalPredictions: a.total.Load(),
		BlankInputs:      a.blank.Load(),
		LowConfidence:    a.lowConfidence.Load(),
		CacheHits:        a.cacheHits.Load(),
		CacheMisses:      a.cacheMisses.Load(),
	}
	if stats.TotalPredictions > 0 {
		stats.AvgConfidence = a.confidenceSum / float64(stats.TotalPredictions)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	for _, kc := range topN(a.diseaseCounts, a.topN) {
		stats.TopDiseases = append(stats.TopDiseases, DiseaseCount{Disease: kc.key, Count: kc.count})
	}
	for _, kc := range topN(a.modelCounts, 5) {
		stats.Models = append(stats.Models, ModelCount{ModelID: kc.key, Count: kc.count})
	}
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.PredictionsPerMinute = float64(stats.TotalPredictions) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type keyCount struct {
	key   string
	count int64
}

// topN orders by count descending, then key ascending.
func topN(counts map[string]int64, n int) []keyCount {
	result := make([]keyCount, 0, len(counts))
	for k, c := range counts {
		result = append(result, keyCount{key: k, count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].count != result[j].count {
			return result[i].count > result[j].count
		}
		return result[i].key < result[j].key
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
