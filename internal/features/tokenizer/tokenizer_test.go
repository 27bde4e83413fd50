package tokenizer

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

func mustNew(t *testing.T, opts Options) *Tokenizer {
	t.Helper()
	tok, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tok
}

func TestWords(t *testing.T) {
	tok := mustNew(t, DefaultOptions())
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercase and split", "Fever, HEADACHE;nausea", []string{"fever", "headache", "nausea"}},
		{"stop words removed", "I have a fever and a cough", []string{"fever", "cough"}},
		{"digits split words", "temp39fever", []string{"temp", "fever"}},
		{"short tokens dropped", "x y fever", []string{"fever"}},
		{"accents folded", "Fièvre élevée", []string{"fievre", "elevee"}},
		{"blank", "   \t\n", []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Words(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Words(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTermsBigramsSkipStopWords(t *testing.T) {
	tok := mustNew(t, DefaultOptions())
	got := tok.Terms("fever and severe headache")
	want := []string{"fever", "severe", "headache", "fever severe", "severe headache"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms = %q, want %q", got, want)
	}
}

func TestTermsUnigramOnly(t *testing.T) {
	tok := mustNew(t, Options{NgramMin: 1, NgramMax: 1, StopWords: false})
	got := tok.Terms("the fever")
	want := []string{"the", "fever"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms = %q, want %q", got, want)
	}
}

func TestTermsBigramOnly(t *testing.T) {
	tok := mustNew(t, Options{NgramMin: 2, NgramMax: 2, StopWords: true})
	got := tok.Terms("chest pain radiating")
	want := []string{"chest pain", "pain radiating"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms = %q, want %q", got, want)
	}
}

func TestNewRejectsBadRange(t *testing.T) {
	_, err := New(Options{NgramMin: 2, NgramMax: 1})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "and", "back", "yourselves"} {
		if !IsStopWord(w) {
			t.Errorf("%q should be a stop word", w)
		}
	}
	for _, w := range []string{"fever", "cough", "vomiting"} {
		if IsStopWord(w) {
			t.Errorf("%q should not be a stop word", w)
		}
	}
}
