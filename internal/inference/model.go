package inference

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
)

// ConfidenceResult is the ranked answer for one symptom description.
type ConfidenceResult struct {
	PrimaryPrediction string              `json:"primary_prediction"`
	ConfidenceScore   float64             `json:"confidence_score"`
	TopPredictions    []classifier.Ranked `json:"top_predictions"`
	ModelID           string              `json:"model_id"`
	// NoKnownSymptoms is set when no term of the input is in the vocabulary
	// and the ranking therefore reflects class priors only.
	NoKnownSymptoms bool `json:"no_known_symptoms,omitempty"`
}

// Model is one loaded, immutable artifact ready for scoring.
type Model struct {
	artifact   *artifact.Artifact
	vectorizer *vectorizer.Vectorizer
	classifier *classifier.NaiveBayes
	loadedAt   time.Time
}

// NewModel restores the fitted components of a.
func NewModel(a *artifact.Artifact) (*Model, error) {
	vec, nb, err := a.Restore()
	if err != nil {
		return nil, err
	}
	return &Model{
		artifact:   a,
		vectorizer: vec,
		classifier: nb,
		loadedAt:   time.Now(),
	}, nil
}

func (m *Model) ID() string {
	return m.artifact.ModelID
}

func (m *Model) Artifact() *artifact.Artifact {
	return m.artifact
}

func (m *Model) LoadedAt() time.Time {
	return m.loadedAt
}

func (m *Model) PredictDisease(text string) (string, error) {
	v, err := m.vectorizer.Transform(text)
	if err != nil {
		return "", err
	}
	return m.classifier.Predict(v)
}

// PredictWithConfidence returns the k most probable diseases.
func (m *Model) PredictWithConfidence(text string, k int) (ConfidenceResult, error) {
	v, err := m.vectorizer.Transform(text)
	if err != nil {
		return ConfidenceResult{}, err
	}
	pred, err := m.classifier.PredictWithConfidence(v, k)
	if err != nil {
		return ConfidenceResult{}, err
	}
	return ConfidenceResult{
		PrimaryPrediction: pred.Primary,
		ConfidenceScore:   pred.Confidence,
		TopPredictions:    pred.Top,
		ModelID:           m.artifact.ModelID,
		NoKnownSymptoms:   v.IsZero(),
	}, nil
}

// Info describes the model for operators.
type Info struct {
	ModelID        string                   `json:"model_id"`
	CreatedAt      time.Time                `json:"created_at"`
	LoadedAt       time.Time                `json:"loaded_at"`
	Location       string                   `json:"location"`
	Classes        []string                 `json:"classes"`
	VocabularySize int                      `json:"vocabulary_size"`
	Alpha          float64                  `json:"alpha"`
	NgramRange     [2]int                   `json:"ngram_range"`
	Norm           string                   `json:"norm"`
	Training       artifact.TrainingSummary `json:"training"`
}

func (m *Model) Info(location string) Info {
	opts := m.vectorizer.Options()
	return Info{
		ModelID:        m.artifact.ModelID,
		CreatedAt:      m.artifact.CreatedAt,
		LoadedAt:       m.loadedAt,
		Location:       location,
		Classes:        m.classifier.Classes(),
		VocabularySize: m.vectorizer.Size(),
		Alpha:          m.classifier.Alpha(),
		NgramRange:     [2]int{opts.Tokenizer.NgramMin, opts.Tokenizer.NgramMax},
		Norm:           opts.Norm,
		Training:       m.artifact.Training,
	}
}
