package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/artifacttest"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
)

var sampleTexts = map[string]string{
	"short":  "fever and dry cough",
	"medium": "I have had a high fever with chills for three days, a pounding headache, muscle aches and a dry cough that gets worse at night.",
	"long": strings.Repeat("Persistent itching with red patches on the arms, occasional blisters, "+
		"mild fever in the evenings, loss of appetite and fatigue after meals. ", 20),
}

var vocabulary = []string{
	"fever", "cough", "headache", "nausea", "vomiting", "rash", "itching", "fatigue",
	"chills", "sneezing", "diarrhea", "dizziness", "joint", "pain", "swelling", "thirst",
}

var diseases = []string{"flu", "migraine", "allergy", "food_poisoning", "arthritis", "diabetes"}

// syntheticCorpus builds a deterministic corpus of n rows.
func syntheticCorpus(n int) (texts, labels []string) {
	texts = make([]string, n)
	labels = make([]string, n)
	for i := 0; i < n; i++ {
		words := make([]string, 0, 5)
		for j := 0; j < 5; j++ {
			words = append(words, vocabulary[(i*7+j*3)%len(vocabulary)])
		}
		texts[i] = strings.Join(words, " ")
		labels[i] = diseases[i%len(diseases)]
	}
	return texts, labels
}

func syntheticModel(b *testing.B, n int) *inference.Model {
	b.Helper()
	texts, labels := syntheticCorpus(n)
	m, err := inference.NewModel(artifacttest.Fit(b, texts, labels))
	if err != nil {
		b.Fatal(err)
	}
	return m
}

func BenchmarkTokenize(b *testing.B) {
	tok, err := tokenizer.New(tokenizer.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Terms(text)
			}
		})
	}
}

func BenchmarkTransform(b *testing.B) {
	texts, _ := syntheticCorpus(500)
	vec, err := vectorizer.New(vectorizer.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	if err := vec.Fit(texts); err != nil {
		b.Fatal(err)
	}
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		if _, err := vec.Transform(text); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPredictWithConfidence(b *testing.B) {
	m := syntheticModel(b, 1000)
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := m.PredictWithConfidence(text, inference.DefaultTopK); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPredictParallel(b *testing.B) {
	m := syntheticModel(b, 1000)
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := m.PredictDisease(text); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkArtifactCodec(b *testing.B) {
	for _, n := range []int{100, 1000} {
		texts, labels := syntheticCorpus(n)
		a := artifacttest.Fit(b, texts, labels)
		b.Run(fmt.Sprintf("rows_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				data, err := artifact.Encode(a)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := artifact.Decode(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
