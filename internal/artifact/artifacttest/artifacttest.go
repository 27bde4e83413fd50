// Package artifacttest builds small fitted artifacts for tests.
package artifacttest

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
)

// ScenarioTexts and ScenarioLabels form the three-example flu/food poisoning
// corpus.
var (
	ScenarioTexts  = []string{"fever headache", "vomiting nausea", "fever cough"}
	ScenarioLabels = []string{"flu", "food_poisoning", "flu"}
)

// Scenario fits the three-example corpus.
func Scenario(t testing.TB) *artifact.Artifact {
	t.Helper()
	return Fit(t, ScenarioTexts, ScenarioLabels)
}

// Fit trains a default-configured model on texts and labels.
func Fit(t testing.TB, texts, labels []string) *artifact.Artifact {
	t.Helper()
	vec, err := vectorizer.New(vectorizer.DefaultOptions())
	if err != nil {
		t.Fatalf("vectorizer.New: %v", err)
	}
	X, err := vec.FitTransform(texts)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	nb, err := classifier.NewNaiveBayes(classifier.DefaultAlpha)
	if err != nil {
		t.Fatal(err)
	}
	if err := nb.Fit(X, labels); err != nil {
		t.Fatalf("classifier Fit: %v", err)
	}
	a, err := artifact.New(vec, nb, artifact.TrainingSummary{
		Source:     "artifacttest",
		CorpusSize: len(texts),
		TrainSize:  len(texts),
	})
	if err != nil {
		t.Fatalf("artifact.New: %v", err)
	}
	return a
}
