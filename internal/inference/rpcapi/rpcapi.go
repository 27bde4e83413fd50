// Package rpcapi registers the SymptomService methods on the internal RPC
// server.
package rpcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/proto"
)

type Predictor interface {
	Model() *inference.Model
	TopK() int
	Info() inference.Info
}

type Service struct {
	predictor        Predictor
	cache            *cache.PredictionCache
	maxSymptomLength int
}

// New builds the RPC service. predictionCache may be nil.
func New(p Predictor, predictionCache *cache.PredictionCache, maxSymptomLength int) *Service {
	return &Service{predictor: p, cache: predictionCache, maxSymptomLength: maxSymptomLength}
}

func (s *Service) Register(server *grpc.Server) {
	server.Register(proto.MethodPredictDisease, s.predictDisease)
	server.Register(proto.MethodPredictWithConfidence, s.predictWithConfidence)
	server.Register(proto.MethodModelInfo, s.modelInfo)
	server.Register(proto.MethodHealth, s.health)
}

func (s *Service) predictDisease(ctx context.Context, raw json.RawMessage) (any, error) {
	res, _, err := s.predict(ctx, raw)
	if err != nil {
		return nil, err
	}
	return proto.PredictDiseaseResponse{Disease: res.PrimaryPrediction, ModelID: res.ModelID}, nil
}

func (s *Service) predictWithConfidence(ctx context.Context, raw json.RawMessage) (any, error) {
	res, hit, err := s.predict(ctx, raw)
	if err != nil {
		return nil, err
	}
	resp := proto.PredictWithConfidenceResponse{
		PrimaryPrediction: res.PrimaryPrediction,
		ConfidenceScore:   res.ConfidenceScore,
		TopPredictions:    make([]proto.RankedDisease, len(res.TopPredictions)),
		ModelID:           res.ModelID,
		NoKnownSymptoms:   res.NoKnownSymptoms,
		CacheHit:          hit,
	}
	for i, r := range res.TopPredictions {
		resp.TopPredictions[i] = proto.RankedDisease{Disease: r.Label, Confidence: r.Probability}
	}
	return resp, nil
}

func (s *Service) predict(ctx context.Context, raw json.RawMessage) (inference.ConfidenceResult, bool, error) {
	symptoms, err := s.decodeSymptoms(raw)
	if err != nil {
		return inference.ConfidenceResult{}, false, err
	}
	m := s.predictor.Model()
	if m == nil {
		return inference.ConfidenceResult{}, false, apperrors.ErrModelUnavailable
	}
	compute := func() (inference.ConfidenceResult, error) {
		return m.PredictWithConfidence(symptoms, s.predictor.TopK())
	}
	if s.cache == nil {
		res, err := compute()
		return res, false, err
	}
	return s.cache.GetOrCompute(ctx, m.ID(), symptoms, compute)
}

// decodeSymptoms applies the HTTP boundary's rules: symptoms must be present
// and a string, and at most maxSymptomLength characters.
func (s *Service) decodeSymptoms(raw json.RawMessage) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding request: %v", err)
	}
	field, ok := fields["symptoms"]
	if !ok {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "symptoms is required")
	}
	var symptoms string
	if bytes.Equal(bytes.TrimSpace(field), []byte("null")) || json.Unmarshal(field, &symptoms) != nil {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "symptoms must be a string")
	}
	if s.maxSymptomLength > 0 && utf8.RuneCountInString(symptoms) > s.maxSymptomLength {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"symptoms must be at most %d characters", s.maxSymptomLength)
	}
	return symptoms, nil
}

func (s *Service) modelInfo(ctx context.Context, _ json.RawMessage) (any, error) {
	if s.predictor.Model() == nil {
		return nil, apperrors.ErrModelUnavailable
	}
	info := s.predictor.Info()
	return proto.ModelInfoResponse{
		ModelID:        info.ModelID,
		CreatedAt:      info.CreatedAt,
		LoadedAt:       info.LoadedAt,
		Location:       info.Location,
		Classes:        info.Classes,
		VocabularySize: info.VocabularySize,
		TestAccuracy:   info.Training.TestAccuracy,
	}, nil
}

func (s *Service) health(ctx context.Context, _ json.RawMessage) (any, error) {
	status := "SERVING"
	if s.predictor.Model() == nil {
		status = "NOT_SERVING"
	}
	return proto.HealthCheckResponse{Status: status}, nil
}

// Client is a typed SymptomService client.
type Client struct {
	rpc *grpc.Client
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	c, err := grpc.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

func (c *Client) PredictDisease(ctx context.Context, symptoms string) (proto.PredictDiseaseResponse, error) {
	var resp proto.PredictDiseaseResponse
	err := c.rpc.Call(ctx, proto.MethodPredictDisease, proto.PredictRequest{Symptoms: symptoms}, &resp)
	if err != nil {
		return resp, fmt.Errorf("%s: %w", proto.MethodPredictDisease, err)
	}
	return resp, nil
}

func (c *Client) PredictWithConfidence(ctx context.Context, symptoms string) (proto.PredictWithConfidenceResponse, error) {
	var resp proto.PredictWithConfidenceResponse
	err := c.rpc.Call(ctx, proto.MethodPredictWithConfidence, proto.PredictRequest{Symptoms: symptoms}, &resp)
	if err != nil {
		return resp, fmt.Errorf("%s: %w", proto.MethodPredictWithConfidence, err)
	}
	return resp, nil
}

func (c *Client) ModelInfo(ctx context.Context) (proto.ModelInfoResponse, error) {
	var resp proto.ModelInfoResponse
	if err := c.rpc.Call(ctx, proto.MethodModelInfo, proto.ModelInfoRequest{}, &resp); err != nil {
		return resp, fmt.Errorf("%s: %w", proto.MethodModelInfo, err)
	}
	return resp, nil
}

func (c *Client) Health(ctx context.Context) (proto.HealthCheckResponse, error) {
	var resp proto.HealthCheckResponse
	if err := c.rpc.Call(ctx, proto.MethodHealth, struct{}{}, &resp); err != nil {
		return resp, fmt.Errorf("%s: %w", proto.MethodHealth, err)
	}
	return resp, nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}
