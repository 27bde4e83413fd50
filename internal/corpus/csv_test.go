package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

func TestCSVRead(t *testing.T) {
	input := "disease,symptoms,age\n" +
		"flu,\"fever, headache\",30\n" +
		"food_poisoning,vomiting nausea,41\n" +
		",orphan row,12\n" +
		"flu,fever cough,22\n"
	s := NewCSVSource("inline.csv", "", "")
	c, err := s.read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []Example{
		{Symptoms: "fever, headache", Disease: "flu"},
		{Symptoms: "vomiting nausea", Disease: "food_poisoning"},
		{Symptoms: "fever cough", Disease: "flu"},
	}
	if !reflect.DeepEqual(c.Examples, want) {
		t.Fatalf("examples = %+v", c.Examples)
	}
	if c.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", c.Skipped)
	}
	if got := c.Diseases(); !reflect.DeepEqual(got, []string{"flu", "food_poisoning"}) {
		t.Fatalf("diseases = %v", got)
	}
	if c.Distribution()["flu"] != 2 {
		t.Fatalf("distribution = %v", c.Distribution())
	}
}

func TestCSVCustomColumnsAndBOM(t *testing.T) {
	input := "\ufeffText,Label\nrash itching,allergy\n"
	s := NewCSVSource("inline.csv", "text", "label")
	c, err := s.read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 || c.Examples[0].Disease != "allergy" {
		t.Fatalf("corpus = %+v", c)
	}
}

func TestCSVMissingColumn(t *testing.T) {
	s := NewCSVSource("inline.csv", "", "")
	_, err := s.read(context.Background(), strings.NewReader("symptoms,diagnosis\nfever,flu\n"))
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	_, err = s.read(context.Background(), strings.NewReader(""))
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("empty file: expected ErrConfiguration, got %v", err)
	}
}

func TestCSVLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symptoms.csv")
	if err := os.WriteFile(path, []byte("symptoms,disease\nfever,flu\nnausea,food_poisoning\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := NewCSVSource(path, "symptoms", "disease").Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Texts(); !reflect.DeepEqual(got, []string{"fever", "nausea"}) {
		t.Fatalf("texts = %v", got)
	}
	if got := c.Labels(); !reflect.DeepEqual(got, []string{"flu", "food_poisoning"}) {
		t.Fatalf("labels = %v", got)
	}
}

func TestCSVLoadMissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), "", "").Load(context.Background())
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestStaticSourceCopies(t *testing.T) {
	src := Static{Examples: []Example{{Symptoms: "fever", Disease: "flu"}}}
	c, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	c.Examples[0].Disease = "changed"
	if src.Examples[0].Disease != "flu" {
		t.Fatal("Load must not alias the static examples")
	}
	if src.Name() != "static" {
		t.Fatalf("name = %q", src.Name())
	}
}
