package inference

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/artifacttest"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
)

func newScenarioService(t *testing.T) (*Service, string) {
	t.Helper()
	location := filepath.Join(t.TempDir(), "symptom_model.scma")
	st := store.NewFileStore()
	if err := st.Save(context.Background(), location, artifacttest.Scenario(t)); err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(context.Background(), st, location, Options{
		Metrics: metrics.NewWithRegistry(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, location
}

func TestScenario(t *testing.T) {
	svc, _ := newScenarioService(t)

	label, err := svc.PredictDisease("fever")
	if err != nil {
		t.Fatal(err)
	}
	if label != "flu" {
		t.Fatalf("PredictDisease(fever) = %q", label)
	}

	res, err := svc.PredictWithConfidence("vomiting")
	if err != nil {
		t.Fatal(err)
	}
	if res.PrimaryPrediction != "food_poisoning" || res.ConfidenceScore <= 0.5 {
		t.Fatalf("result = %+v", res)
	}
	if res.TopPredictions[0].Label != res.PrimaryPrediction || res.ModelID == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestPredictConsistency(t *testing.T) {
	svc, _ := newScenarioService(t)
	for _, text := range []string{"fever", "vomiting", "nausea headache", "", "   ", "unknown gibberish"} {
		label, err := svc.PredictDisease(text)
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		res, err := svc.PredictWithConfidence(text)
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if label != res.PrimaryPrediction {
			t.Errorf("%q: PredictDisease=%q primary=%q", text, label, res.PrimaryPrediction)
		}
		var sum float64
		for i, r := range res.TopPredictions {
			sum += r.Probability
			if i > 0 && r.Probability > res.TopPredictions[i-1].Probability {
				t.Errorf("%q: ranking not sorted: %+v", text, res.TopPredictions)
			}
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("%q: two-class probabilities sum to %v", text, sum)
		}
	}
}

func TestBlankInputUsesPriors(t *testing.T) {
	svc, _ := newScenarioService(t)
	res, err := svc.PredictWithConfidence("")
	if err != nil {
		t.Fatal(err)
	}
	if !res.NoKnownSymptoms || res.PrimaryPrediction != "flu" {
		t.Fatalf("result = %+v", res)
	}
	if math.Abs(res.ConfidenceScore-2.0/3.0) > 1e-9 {
		t.Fatalf("confidence = %v, want prior 2/3", res.ConfidenceScore)
	}
}

func TestNewServiceMissingArtifact(t *testing.T) {
	_, err := NewService(context.Background(), store.NewFileStore(), filepath.Join(t.TempDir(), "none.scma"), Options{})
	if !errors.Is(err, apperrors.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestNewServiceCorruptArtifact(t *testing.T) {
	location := filepath.Join(t.TempDir(), "bad.scma")
	if err := os.WriteFile(location, []byte("SCMA garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewService(context.Background(), store.NewFileStore(), location, Options{})
	if !errors.Is(err, apperrors.ErrArtifactCorrupt) {
		t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
	}
}

func TestReloadSwapsAndRunsHooks(t *testing.T) {
	svc, location := newScenarioService(t)
	oldID := svc.Model().ID()

	var hookCalls int
	var hookPrev, hookCur string
	svc.OnReload(func(prev, cur *Model) {
		hookCalls++
		hookPrev, hookCur = prev.ID(), cur.ID()
	})

	next := artifacttest.Fit(t,
		[]string{"rash itching", "sneezing runny nose", "rash hives"},
		[]string{"allergy", "cold", "allergy"},
	)
	if err := store.NewFileStore().Save(context.Background(), location, next); err != nil {
		t.Fatal(err)
	}
	info, err := svc.Reload(context.Background(), "test")
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if info.ModelID != next.ModelID || svc.Model().ID() != next.ModelID {
		t.Fatalf("model not swapped: info=%s current=%s", info.ModelID, svc.Model().ID())
	}
	if hookCalls != 1 || hookPrev != oldID || hookCur != next.ModelID {
		t.Fatalf("hook calls=%d prev=%s cur=%s", hookCalls, hookPrev, hookCur)
	}
	if label, _ := svc.PredictDisease("rash"); label != "allergy" {
		t.Fatalf("new model predicted %q", label)
	}

	if _, err := svc.Reload(context.Background(), "test"); err != nil {
		t.Fatal(err)
	}
	if hookCalls != 1 {
		t.Fatal("reloading the same model must not run hooks")
	}
}

func TestReloadFailureKeepsServing(t *testing.T) {
	svc, location := newScenarioService(t)
	before := svc.Model().ID()
	if err := os.WriteFile(location, []byte("corrupted"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reload(context.Background(), "test"); !errors.Is(err, apperrors.ErrArtifactCorrupt) {
		t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
	}
	if svc.Model().ID() != before {
		t.Fatal("failed reload replaced the model")
	}
	if label, err := svc.PredictDisease("fever"); err != nil || label != "flu" {
		t.Fatalf("still serving? label=%q err=%v", label, err)
	}
}

func TestConcurrentPredictDuringReload(t *testing.T) {
	svc, _ := newScenarioService(t)
	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.PredictWithConfidence("fever cough"); err != nil {
				errs <- err
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reload(context.Background(), "test"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestInfo(t *testing.T) {
	svc, location := newScenarioService(t)
	info := svc.Info()
	if info.Location != location || len(info.Classes) != 2 || info.VocabularySize != 8 {
		t.Fatalf("info = %+v", info)
	}
	if info.NgramRange != [2]int{1, 2} || info.Norm != "l2" || info.Alpha != 0.1 {
		t.Fatalf("info = %+v", info)
	}
}
