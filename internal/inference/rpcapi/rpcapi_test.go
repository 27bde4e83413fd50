package rpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/artifacttest"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/store"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/proto"
)

func startRPC(t *testing.T) (*Client, *inference.Service) {
	t.Helper()
	svc, err := inference.NewServiceFromArtifact(artifacttest.Scenario(t), store.NewFileStore(), "model.scma", inference.Options{})
	if err != nil {
		t.Fatal(err)
	}
	pc, err := cache.New(nil, cache.Options{LocalSize: 16})
	if err != nil {
		t.Fatal(err)
	}
	server := grpc.NewServer()
	New(svc, pc, 100).Register(server)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go server.ServeListener(ln)
	t.Cleanup(server.Stop)

	c, err := Dial(context.Background(), ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c, svc
}

func TestPredictOverRPC(t *testing.T) {
	c, svc := startRPC(t)
	ctx := context.Background()

	resp, err := c.PredictDisease(ctx, "fever")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Disease != "flu" || resp.ModelID != svc.Model().ID() {
		t.Fatalf("resp = %+v", resp)
	}

	conf, err := c.PredictWithConfidence(ctx, "vomiting")
	if err != nil {
		t.Fatal(err)
	}
	if conf.PrimaryPrediction != "food_poisoning" || len(conf.TopPredictions) != 2 {
		t.Fatalf("conf = %+v", conf)
	}
	if conf.TopPredictions[0].Disease != conf.PrimaryPrediction || conf.TopPredictions[0].Confidence != conf.ConfidenceScore {
		t.Fatalf("conf = %+v", conf)
	}

	again, err := c.PredictWithConfidence(ctx, "vomiting")
	if err != nil || !again.CacheHit {
		t.Fatalf("again=%+v err=%v", again, err)
	}
}

func TestPredictTooLong(t *testing.T) {
	c, _ := startRPC(t)
	_, err := c.PredictDisease(context.Background(), strings.Repeat("x", 101))
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPredictRequiresSymptoms(t *testing.T) {
	c, _ := startRPC(t)
	tests := []struct {
		name   string
		params any
	}{
		{"missing", map[string]any{"age": 30}},
		{"null", map[string]any{"symptoms": nil}},
		{"not a string", map[string]any{"symptoms": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp proto.PredictDiseaseResponse
			err := c.rpc.Call(context.Background(), proto.MethodPredictDisease, tt.params, &resp)
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if resp, err := c.PredictDisease(context.Background(), ""); err != nil || resp.Disease != "flu" {
		t.Fatalf("blank symptoms: resp=%+v err=%v", resp, err)
	}
}

// pinnedPredictor hands out served while the embedded service already
// holds a newer model, as when a reload lands mid-request.
type pinnedPredictor struct {
	*inference.Service
	served *inference.Model
}

func (p pinnedPredictor) Model() *inference.Model { return p.served }

func TestPredictScoresWithKeyedModel(t *testing.T) {
	newer := artifacttest.Fit(t,
		[]string{"rash itching", "sneezing runny nose", "rash hives"},
		[]string{"allergy", "cold", "allergy"},
	)
	svc, err := inference.NewServiceFromArtifact(newer, store.NewFileStore(), "model.scma", inference.Options{})
	if err != nil {
		t.Fatal(err)
	}
	served, err := inference.NewModel(artifacttest.Scenario(t))
	if err != nil {
		t.Fatal(err)
	}
	pc, err := cache.New(nil, cache.Options{LocalSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	rpcSvc := New(pinnedPredictor{Service: svc, served: served}, pc, 100)
	for i := 0; i < 2; i++ {
		res, _, err := rpcSvc.predict(context.Background(), json.RawMessage(`{"symptoms":"fever"}`))
		if err != nil {
			t.Fatal(err)
		}
		if res.ModelID != served.ID() || res.PrimaryPrediction != "flu" {
			t.Fatalf("call %d: result = %+v, want flu from %s", i, res, served.ID())
		}
	}
}

func TestModelInfoAndHealth(t *testing.T) {
	c, svc := startRPC(t)
	info, err := c.ModelInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.ModelID != svc.Model().ID() || len(info.Classes) != 2 || info.VocabularySize != 8 {
		t.Fatalf("info = %+v", info)
	}
	h, err := c.Health(context.Background())
	if err != nil || h.Status != "SERVING" {
		t.Fatalf("health=%+v err=%v", h, err)
	}
}
