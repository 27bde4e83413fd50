package analytics

import "time"

type EventType string

const (
	EventPrediction EventType = "prediction"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventBlankInput EventType = "blank_input"
)

// LowConfidenceThreshold is the default below which a primary confidence
// counts as low in aggregate stats.
const LowConfidenceThreshold = 0.5

type PredictionEvent struct {
	Type       EventType `json:"type"`
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	BlankInput bool      `json:"blank_input"`
	CacheHit   bool      `json:"cache_hit"`
	LatencyMs  int64     `json:"latency_ms"`
	ModelID    string    `json:"model_id"`
	Endpoint   string    `json:"endpoint"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}
