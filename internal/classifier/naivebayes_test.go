package classifier

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

type fixture struct {
	vec *vectorizer.Vectorizer
	nb  *NaiveBayes
}

func scenario(t *testing.T) fixture {
	t.Helper()
	texts := []string{"fever headache", "vomiting nausea", "fever cough"}
	labels := []string{"flu", "food_poisoning", "flu"}
	vec, err := vectorizer.New(vectorizer.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	X, err := vec.FitTransform(texts)
	if err != nil {
		t.Fatal(err)
	}
	nb, err := NewNaiveBayes(DefaultAlpha)
	if err != nil {
		t.Fatal(err)
	}
	if err := nb.Fit(X, labels); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return fixture{vec: vec, nb: nb}
}

func (f fixture) transform(t *testing.T, text string) vectorizer.Vector {
	t.Helper()
	v, err := f.vec.Transform(text)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestScenarioPredictions(t *testing.T) {
	f := scenario(t)

	if got := f.nb.Classes(); !reflect.DeepEqual(got, []string{"flu", "food_poisoning"}) {
		t.Fatalf("classes = %v", got)
	}

	label, err := f.nb.Predict(f.transform(t, "fever"))
	if err != nil {
		t.Fatal(err)
	}
	if label != "flu" {
		t.Fatalf("Predict(fever) = %q, want flu", label)
	}

	pred, err := f.nb.PredictWithConfidence(f.transform(t, "vomiting"), 3)
	if err != nil {
		t.Fatal(err)
	}
	if pred.Primary != "food_poisoning" || pred.Confidence <= 0.5 {
		t.Fatalf("PredictWithConfidence(vomiting) = %+v", pred)
	}
	if len(pred.Top) != 2 {
		t.Fatalf("expected every class when fewer than k exist, got %d", len(pred.Top))
	}
}

func TestProbabilitiesSumToOneAndAreSorted(t *testing.T) {
	f := scenario(t)
	for _, text := range []string{"fever", "vomiting", "fever nausea", "", "unknown"} {
		pred, err := f.nb.PredictWithConfidence(f.transform(t, text), 0)
		if err != nil {
			t.Fatal(err)
		}
		var sum float64
		for i, r := range pred.Top {
			sum += r.Probability
			if i > 0 && r.Probability > pred.Top[i-1].Probability {
				t.Errorf("%q: probabilities increase at %d: %+v", text, i, pred.Top)
			}
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("%q: probabilities sum to %v", text, sum)
		}
	}
}

func TestPredictMatchesPrimary(t *testing.T) {
	f := scenario(t)
	for _, text := range []string{"fever", "vomiting", "headache nausea", "cough", ""} {
		v := f.transform(t, text)
		label, err := f.nb.Predict(v)
		if err != nil {
			t.Fatal(err)
		}
		pred, err := f.nb.PredictWithConfidence(v, 3)
		if err != nil {
			t.Fatal(err)
		}
		if label != pred.Primary || pred.Top[0].Label != pred.Primary {
			t.Errorf("%q: Predict=%q Primary=%q Top0=%q", text, label, pred.Primary, pred.Top[0].Label)
		}
	}
}

func TestZeroVectorFollowsPrior(t *testing.T) {
	f := scenario(t)
	probs, err := f.nb.Score(vectorizer.Zero(f.vec.Size()))
	if err != nil {
		t.Fatal(err)
	}
	// flu has 2 of 3 training examples.
	if math.Abs(probs[0]-2.0/3.0) > 1e-9 || math.Abs(probs[1]-1.0/3.0) > 1e-9 {
		t.Fatalf("zero-vector posterior = %v, want priors", probs)
	}
}

func TestTieBreaksByClassOrder(t *testing.T) {
	nb, _ := NewNaiveBayes(1)
	X := []vectorizer.Vector{
		vectorizer.Dense([]float64{1, 0}),
		vectorizer.Dense([]float64{0, 1}),
	}
	if err := nb.Fit(X, []string{"zeta", "alpha"}); err != nil {
		t.Fatal(err)
	}
	label, err := nb.Predict(vectorizer.Zero(2))
	if err != nil {
		t.Fatal(err)
	}
	if label != "alpha" {
		t.Fatalf("tie should resolve to first class, got %q", label)
	}
	pred, _ := nb.PredictWithConfidence(vectorizer.Zero(2), 3)
	if pred.Top[0].Label != "alpha" || pred.Top[1].Label != "zeta" {
		t.Fatalf("ranking = %+v", pred.Top)
	}
}

func TestTopKTruncates(t *testing.T) {
	nb, _ := NewNaiveBayes(0.1)
	X := []vectorizer.Vector{
		vectorizer.Dense([]float64{1, 0, 0, 0}),
		vectorizer.Dense([]float64{0, 1, 0, 0}),
		vectorizer.Dense([]float64{0, 0, 1, 0}),
		vectorizer.Dense([]float64{0, 0, 0, 1}),
	}
	if err := nb.Fit(X, []string{"a", "b", "c", "d"}); err != nil {
		t.Fatal(err)
	}
	pred, err := nb.PredictWithConfidence(vectorizer.Dense([]float64{0, 0, 1, 0}), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(pred.Top) != 3 || pred.Primary != "c" {
		t.Fatalf("pred = %+v", pred)
	}
}

func TestLikelihoodSmoothing(t *testing.T) {
	nb, _ := NewNaiveBayes(0.5)
	X := []vectorizer.Vector{vectorizer.Dense([]float64{2, 0, 1})}
	if err := nb.Fit(X, []string{"only"}); err != nil {
		t.Fatal(err)
	}
	s, _ := nb.State()
	// (alpha + count) / (alpha*|V| + total) = (0.5+2)/(1.5+3)
	if got, want := s.FeatureLogProb[0][0], math.Log(2.5/4.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("log prob = %v, want %v", got, want)
	}
	if got, want := s.FeatureLogProb[0][1], math.Log(0.5/4.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("log prob = %v, want %v", got, want)
	}
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name   string
		X      []vectorizer.Vector
		labels []string
		want   error
	}{
		{"empty", nil, nil, apperrors.ErrConfiguration},
		{"length mismatch", []vectorizer.Vector{vectorizer.Zero(2)}, []string{"a", "b"}, apperrors.ErrConfiguration},
		{"dimension mismatch", []vectorizer.Vector{vectorizer.Zero(2), vectorizer.Zero(3)}, []string{"a", "b"}, apperrors.ErrDimensionMismatch},
		{"negative weight", []vectorizer.Vector{vectorizer.Dense([]float64{-1, 1})}, []string{"a"}, apperrors.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb, _ := NewNaiveBayes(0.1)
			if err := nb.Fit(tt.X, tt.labels); !errors.Is(err, tt.want) {
				t.Fatalf("Fit error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNotFittedAndDimension(t *testing.T) {
	nb, _ := NewNaiveBayes(0.1)
	if _, err := nb.Predict(vectorizer.Zero(3)); !errors.Is(err, apperrors.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	f := scenario(t)
	if _, err := f.nb.Score(vectorizer.Zero(f.vec.Size() + 1)); !errors.Is(err, apperrors.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNewNaiveBayesRejectsAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -1, math.NaN()} {
		if _, err := NewNaiveBayes(alpha); !errors.Is(err, apperrors.ErrConfiguration) {
			t.Errorf("alpha %v: expected ErrConfiguration, got %v", alpha, err)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	f := scenario(t)
	s, err := f.nb.State()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := FromState(s)
	if err != nil {
		t.Fatal(err)
	}
	v := f.transform(t, "fever nausea")
	a, _ := f.nb.Score(v)
	b, _ := restored.Score(v)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("scores differ after restore: %v vs %v", a, b)
	}
}

func TestStateValidate(t *testing.T) {
	good := State{
		Alpha:          0.1,
		Classes:        []string{"a", "b"},
		ClassLogPrior:  []float64{math.Log(0.5), math.Log(0.5)},
		FeatureLogProb: [][]float64{{-1, -2}, {-2, -1}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid state rejected: %v", err)
	}
	bad := good
	bad.FeatureLogProb = [][]float64{{-1, -2}, {-2}}
	if err := bad.Validate(); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
		t.Fatalf("ragged rows: expected ErrArtifactCorrupt, got %v", err)
	}
	bad = good
	bad.ClassLogPrior = []float64{math.Inf(-1), 0}
	if err := bad.Validate(); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
		t.Fatalf("infinite prior: expected ErrArtifactCorrupt, got %v", err)
	}
}
