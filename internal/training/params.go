package training

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// Params holds every knob of a training run.
type Params struct {
	MaxFeatures  int
	NgramMin     int
	NgramMax     int
	StopWords    bool
	StripAccents bool
	Norm         string
	Alpha        float64
	TestRatio    float64
	Seed         int64
}

// DefaultParams reproduces the reference model: 5000 uni/bigram features,
// English stop words, L2-normalised TF-IDF, alpha 0.1, 80/20 split, seed 43.
func DefaultParams() Params {
	return Params{
		MaxFeatures:  5000,
		NgramMin:     1,
		NgramMax:     2,
		StopWords:    true,
		StripAccents: true,
		Norm:         vectorizer.NormL2,
		Alpha:        0.1,
		TestRatio:    0.2,
		Seed:         43,
	}
}

func ParamsFromConfig(cfg config.TrainingConfig) Params {
	return Params{
		MaxFeatures:  cfg.MaxFeatures,
		NgramMin:     cfg.NgramMin,
		NgramMax:     cfg.NgramMax,
		StopWords:    cfg.StopWords,
		StripAccents: cfg.StripAccents,
		Norm:         cfg.Norm,
		Alpha:        cfg.Alpha,
		TestRatio:    cfg.TestRatio,
		Seed:         cfg.Seed,
	}
}

func (p Params) Validate() error {
	switch {
	case !(p.Alpha > 0):
		return fmt.Errorf("%w: alpha must be positive, got %v", apperrors.ErrConfiguration, p.Alpha)
	case !(p.TestRatio > 0 && p.TestRatio < 1):
		return fmt.Errorf("%w: test ratio must be in (0, 1), got %v", apperrors.ErrConfiguration, p.TestRatio)
	case p.MaxFeatures < 0:
		return fmt.Errorf("%w: max features must not be negative", apperrors.ErrConfiguration)
	}
	return nil
}

// VectorizerOptions translates the params into vectorizer options.
func (p Params) VectorizerOptions() vectorizer.Options {
	return vectorizer.Options{
		MaxFeatures: p.MaxFeatures,
		Tokenizer: tokenizer.Options{
			NgramMin:       p.NgramMin,
			NgramMax:       p.NgramMax,
			StopWords:      p.StopWords,
			StripAccents:   p.StripAccents,
			MinTokenLength: 2,
		},
		Norm:      p.Norm,
		SmoothIDF: true,
	}
}
