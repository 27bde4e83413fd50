package vectorizer

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

var scenarioCorpus = []string{
	"fever headache",
	"vomiting nausea",
	"fever cough",
}

func fitted(t *testing.T, opts Options, texts []string) *Vectorizer {
	t.Helper()
	v, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Fit(texts); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return v
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFitVocabularyIsSorted(t *testing.T) {
	v := fitted(t, DefaultOptions(), scenarioCorpus)
	want := []string{
		"cough", "fever", "fever cough", "fever headache", "headache",
		"nausea", "vomiting", "vomiting nausea",
	}
	if got := v.Terms(); !reflect.DeepEqual(got, want) {
		t.Fatalf("terms = %q, want %q", got, want)
	}
	if v.Size() != len(want) {
		t.Fatalf("Size = %d", v.Size())
	}
	vocab := v.Vocabulary()
	for i, term := range want {
		if vocab[term] != i {
			t.Errorf("vocab[%q] = %d, want %d", term, vocab[term], i)
		}
	}
}

func TestFitSmoothedIDF(t *testing.T) {
	v := fitted(t, DefaultOptions(), scenarioCorpus)
	idf := v.IDF()
	vocab := v.Vocabulary()
	// fever appears in 2 of 3 documents, cough in 1.
	if got, want := idf[vocab["fever"]], math.Log(4.0/3.0)+1; !approx(got, want) {
		t.Errorf("idf(fever) = %v, want %v", got, want)
	}
	if got, want := idf[vocab["cough"]], math.Log(4.0/2.0)+1; !approx(got, want) {
		t.Errorf("idf(cough) = %v, want %v", got, want)
	}
}

func TestFitMaxFeaturesKeepsMostFrequent(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFeatures = 2
	opts.Tokenizer.NgramMax = 1
	v := fitted(t, opts, []string{
		"rash itching",
		"fever rash",
		"fever rash chills",
	})
	// rash=3, fever=2, itching and chills=1.
	if got, want := v.Terms(), []string{"fever", "rash"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("terms = %q, want %q", got, want)
	}
}

func TestFitMaxFeaturesTieBreaksByFirstSeen(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFeatures = 2
	opts.Tokenizer.NgramMax = 1
	v := fitted(t, opts, []string{"zoster blister", "acne"})
	if got, want := v.Terms(), []string{"blister", "zoster"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("terms = %q, want %q", got, want)
	}
}

func TestFitOnlyStopWords(t *testing.T) {
	v, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	err = v.Fit([]string{"the and of", "I am"})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if v.Fitted() {
		t.Fatal("vectorizer should remain unfitted")
	}
}

func TestTransformBeforeFit(t *testing.T) {
	v, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Transform("fever"); !errors.Is(err, apperrors.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if _, err := v.State(); !errors.Is(err, apperrors.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted from State, got %v", err)
	}
}

func TestTransformL2Normalised(t *testing.T) {
	v := fitted(t, DefaultOptions(), scenarioCorpus)
	vec, err := v.Transform("fever cough fever")
	if err != nil {
		t.Fatal(err)
	}
	if vec.Dim != v.Size() {
		t.Fatalf("dim = %d, want %d", vec.Dim, v.Size())
	}
	if !approx(vec.Norm(), 1) {
		t.Fatalf("norm = %v, want 1", vec.Norm())
	}
	for k := 1; k < len(vec.Indices); k++ {
		if vec.Indices[k-1] >= vec.Indices[k] {
			t.Fatalf("indices not increasing: %v", vec.Indices)
		}
	}
	vocab := v.Vocabulary()
	if vec.At(vocab["fever"]) <= vec.At(vocab["cough"]) {
		t.Errorf("fever occurs twice and should outweigh cough: %v", vec.ToDense())
	}
}

func TestTransformWithoutNorm(t *testing.T) {
	opts := DefaultOptions()
	opts.Norm = NormNone
	v := fitted(t, opts, scenarioCorpus)
	vec, err := v.Transform("fever fever")
	if err != nil {
		t.Fatal(err)
	}
	idf := v.IDF()[v.Vocabulary()["fever"]]
	if got := vec.At(v.Vocabulary()["fever"]); !approx(got, 2*idf) {
		t.Fatalf("weight = %v, want %v", got, 2*idf)
	}
}

func TestTransformUnknownAndEmpty(t *testing.T) {
	v := fitted(t, DefaultOptions(), scenarioCorpus)
	for _, text := range []string{"", "   ", "xylophone zebra", "the and"} {
		vec, err := v.Transform(text)
		if err != nil {
			t.Fatalf("Transform(%q): %v", text, err)
		}
		if !vec.IsZero() || vec.Dim != v.Size() {
			t.Errorf("Transform(%q) = %+v, want zero vector of dim %d", text, vec, v.Size())
		}
	}
}

func TestTransformDeterministic(t *testing.T) {
	v := fitted(t, DefaultOptions(), scenarioCorpus)
	a, _ := v.Transform("fever, headache and nausea")
	b, _ := v.Transform("fever, headache and nausea")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("transform not deterministic: %+v vs %+v", a, b)
	}
}

func TestStateRoundTrip(t *testing.T) {
	v := fitted(t, DefaultOptions(), scenarioCorpus)
	state, err := v.State()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := FromState(state)
	if err != nil {
		t.Fatalf("FromState: %v", err)
	}
	for _, text := range append(scenarioCorpus, "fever", "unknown words") {
		want, _ := v.Transform(text)
		got, _ := restored.Transform(text)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Transform(%q) differs after restore", text)
		}
	}
}

func TestFromStateRejectsInconsistent(t *testing.T) {
	base := State{
		Options: DefaultOptions(),
		Terms:   []string{"cough", "fever"},
		IDF:     []float64{1.5, 1.2},
		NumDocs: 3,
	}
	tests := []struct {
		name   string
		mutate func(s *State)
	}{
		{"empty vocabulary", func(s *State) { s.Terms, s.IDF = nil, nil }},
		{"idf length", func(s *State) { s.IDF = s.IDF[:1] }},
		{"unsorted", func(s *State) { s.Terms = []string{"fever", "cough"} }},
		{"nan idf", func(s *State) { s.IDF = []float64{math.NaN(), 1} }},
		{"unknown norm", func(s *State) { s.Options.Norm = "bogus" }},
		{"zero ngram min", func(s *State) { s.Options.Tokenizer.NgramMin = 0 }},
		{"inverted ngram range", func(s *State) { s.Options.Tokenizer.NgramMin, s.Options.Tokenizer.NgramMax = 2, 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			s.Terms = append([]string(nil), base.Terms...)
			s.IDF = append([]float64(nil), base.IDF...)
			tt.mutate(&s)
			if _, err := FromState(s); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
				t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
			}
		})
	}
}

func TestNewRejectsUnknownNorm(t *testing.T) {
	_, err := New(Options{Norm: "l1", Tokenizer: tokenizer.DefaultOptions()})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
