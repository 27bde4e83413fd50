// Package artifact defines the persisted unit of a fitted model: vocabulary,
// IDF table, class set and classifier parameters plus training metadata.
// A partially valid artifact is never accepted.
package artifact

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// TrainingSummary records how the model was fitted and how it scored.
type TrainingSummary struct {
	Source        string  `json:"source"`
	CorpusSize    int     `json:"corpus_size"`
	SkippedRows   int     `json:"skipped_rows"`
	TrainSize     int     `json:"train_size"`
	TestSize      int     `json:"test_size"`
	TestRatio     float64 `json:"test_ratio"`
	Seed          int64   `json:"seed"`
	TrainAccuracy float64 `json:"train_accuracy"`
	TestAccuracy  float64 `json:"test_accuracy"`
	DurationMs    int64   `json:"duration_ms"`
}

type Artifact struct {
	ModelID    string           `json:"model_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Vectorizer vectorizer.State `json:"vectorizer"`
	Classifier classifier.State `json:"classifier"`
	Training   TrainingSummary  `json:"training"`
}

// New snapshots a fitted vectorizer and classifier into an artifact with a
// fresh model ID.
func New(vec *vectorizer.Vectorizer, nb *classifier.NaiveBayes, summary TrainingSummary) (*Artifact, error) {
	vs, err := vec.State()
	if err != nil {
		return nil, err
	}
	cs, err := nb.State()
	if err != nil {
		return nil, err
	}
	a := &Artifact{
		ModelID:    uuid.NewString(),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		Vectorizer: vs,
		Classifier: cs,
		Training:   summary,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks that every part of the artifact agrees with every other.
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil artifact", apperrors.ErrArtifactCorrupt)
	}
	if _, err := uuid.Parse(a.ModelID); err != nil {
		return fmt.Errorf("%w: invalid model id %q", apperrors.ErrArtifactCorrupt, a.ModelID)
	}
	if err := a.Vectorizer.Validate(); err != nil {
		return err
	}
	if err := a.Classifier.Validate(); err != nil {
		return err
	}
	if width, size := len(a.Classifier.FeatureLogProb[0]), len(a.Vectorizer.Terms); width != size {
		return fmt.Errorf("%w: classifier width %d does not match vocabulary size %d",
			apperrors.ErrArtifactCorrupt, width, size)
	}
	return nil
}

// Restore rebuilds the fitted components held by the artifact.
func (a *Artifact) Restore() (*vectorizer.Vectorizer, *classifier.NaiveBayes, error) {
	if err := a.Validate(); err != nil {
		return nil, nil, err
	}
	vec, err := vectorizer.FromState(a.Vectorizer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: restoring vectorizer: %v", apperrors.ErrArtifactCorrupt, err)
	}
	nb, err := classifier.FromState(a.Classifier)
	if err != nil {
		return nil, nil, err
	}
	return vec, nb, nil
}

func (a *Artifact) Classes() []string {
	return append([]string(nil), a.Classifier.Classes...)
}

func (a *Artifact) VocabularySize() int {
	return len(a.Vectorizer.Terms)
}
