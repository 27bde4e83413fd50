// Package proto defines the message types exchanged over the internal
// JSON-over-TCP RPC layer (see pkg/grpc).
package proto

import "time"

const (
	MethodPredictDisease        = "SymptomService.PredictDisease"
	MethodPredictWithConfidence = "SymptomService.PredictWithConfidence"
	MethodModelInfo             = "SymptomService.ModelInfo"
	MethodHealth                = "SymptomService.Health"
)

// PredictRequest is the input to both prediction methods.
type PredictRequest struct {
	Symptoms string `json:"symptoms"`
}

type PredictDiseaseResponse struct {
	Disease string `json:"disease"`
	ModelID string `json:"model_id"`
}

type RankedDisease struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

type PredictWithConfidenceResponse struct {
	PrimaryPrediction string          `json:"primary_prediction"`
	ConfidenceScore   float64         `json:"confidence_score"`
	TopPredictions    []RankedDisease `json:"top_predictions"`
	ModelID           string          `json:"model_id"`
	NoKnownSymptoms   bool            `json:"no_known_symptoms,omitempty"`
	CacheHit          bool            `json:"cache_hit"`
}

type ModelInfoRequest struct{}

type ModelInfoResponse struct {
	ModelID        string    `json:"model_id"`
	CreatedAt      time.Time `json:"created_at"`
	LoadedAt       time.Time `json:"loaded_at"`
	Location       string    `json:"location"`
	Classes        []string  `json:"classes"`
	VocabularySize int       `json:"vocabulary_size"`
	TestAccuracy   float64   `json:"test_accuracy"`
}

// HealthCheckResponse mirrors the gRPC health check statuses.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING
}
