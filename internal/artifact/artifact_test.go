package artifact

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

func fitArtifact(t *testing.T) *Artifact {
	t.Helper()
	vec, err := vectorizer.New(vectorizer.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	X, err := vec.FitTransform([]string{"fever headache", "vomiting nausea", "fever cough"})
	if err != nil {
		t.Fatal(err)
	}
	nb, _ := classifier.NewNaiveBayes(classifier.DefaultAlpha)
	if err := nb.Fit(X, []string{"flu", "food_poisoning", "flu"}); err != nil {
		t.Fatal(err)
	}
	a, err := New(vec, nb, TrainingSummary{Source: "test", CorpusSize: 3, TrainSize: 2, TestSize: 1, Seed: 43})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := fitArtifact(t)
	data, err := Encode(a)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, a)
	}
	h, err := ReadHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	if !h.Created().Equal(a.CreatedAt) {
		t.Fatalf("header time %v, artifact time %v", h.Created(), a.CreatedAt)
	}
}

func TestDecodeRejectsDamage(t *testing.T) {
	a := fitArtifact(t)
	good, err := Encode(a)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		damage func([]byte) []byte
	}{
		{"truncated header", func(b []byte) []byte { return b[:10] }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-5] }},
		{"bad magic", func(b []byte) []byte { b[0] ^= 0xff; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 9; return b }},
		{"flipped payload byte", func(b []byte) []byte { b[HeaderSize+3] ^= 0x01; return b }},
		{"empty", func(b []byte) []byte { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.damage(append([]byte(nil), good...))
			if _, err := Decode(data); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
				t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
			}
		})
	}
}

func TestDecodeRejectsUnrestorableOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"unknown norm", func(a *Artifact) { a.Vectorizer.Options.Norm = "bogus" }},
		{"zero ngram min", func(a *Artifact) { a.Vectorizer.Options.Tokenizer.NgramMin = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := fitArtifact(t)
			tt.mutate(a)
			if _, err := Encode(a); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
				t.Fatalf("Encode: expected ErrArtifactCorrupt, got %v", err)
			}
			data, err := encode(a)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Decode(data); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
				t.Fatalf("Decode: expected ErrArtifactCorrupt, got %v", err)
			}
		})
	}
}

func TestValidateWidthMismatch(t *testing.T) {
	a := fitArtifact(t)
	a.Vectorizer.Terms = a.Vectorizer.Terms[:len(a.Vectorizer.Terms)-1]
	a.Vectorizer.IDF = a.Vectorizer.IDF[:len(a.Vectorizer.IDF)-1]
	if err := a.Validate(); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
		t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
	}
	if _, err := Encode(a); err == nil {
		t.Fatal("Encode should refuse an inconsistent artifact")
	}
}

func TestRestorePredictsLikeOriginal(t *testing.T) {
	a := fitArtifact(t)
	vec, nb, err := a.Restore()
	if err != nil {
		t.Fatal(err)
	}
	v, err := vec.Transform("fever")
	if err != nil {
		t.Fatal(err)
	}
	label, err := nb.Predict(v)
	if err != nil {
		t.Fatal(err)
	}
	if label != "flu" {
		t.Fatalf("restored model predicted %q", label)
	}
	if a.VocabularySize() != vec.Size() {
		t.Fatalf("VocabularySize = %d, vectorizer size %d", a.VocabularySize(), vec.Size())
	}
}

func TestNewRequiresFittedComponents(t *testing.T) {
	vec, _ := vectorizer.New(vectorizer.DefaultOptions())
	nb, _ := classifier.NewNaiveBayes(0.1)
	if _, err := New(vec, nb, TrainingSummary{}); !errors.Is(err, apperrors.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}
