// Package inference serves predictions from one loaded model artifact. The
// model is loaded once at start and replaced only by an explicit Reload;
// requests read it through an atomic pointer and never block on a reload.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/resilience"
)

const DefaultTopK = 3

type Options struct {
	// TopK is the number of ranked diseases PredictWithConfidence returns.
	TopK        int
	LoadTimeout time.Duration
	Metrics     *metrics.Metrics
}

// ReloadHook runs after a successful swap with the previous and the new
// model.
type ReloadHook func(previous, current *Model)

type Service struct {
	store    store.Store
	location string
	opts     Options
	current  atomic.Pointer[Model]
	reloadMu sync.Mutex
	hooksMu  sync.RWMutex
	hooks    []ReloadHook
	logger   *slog.Logger
}

// NewService loads the artifact at location. Initialisation fails if it
// cannot be loaded.
func NewService(ctx context.Context, st store.Store, location string, opts Options) (*Service, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	s := &Service{
		store:    st,
		location: location,
		opts:     opts,
		logger:   slog.Default().With("component", "inference", "location", location),
	}
	m, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(m)
	s.observe(m)
	s.logger.Info("model loaded",
		"model_id", m.ID(),
		"classes", len(m.classifier.Classes()),
		"vocabulary_size", m.vectorizer.Size(),
	)
	return s, nil
}

// NewServiceFromArtifact serves an in-memory artifact. Reload reads from st
// and location as usual.
func NewServiceFromArtifact(a *artifact.Artifact, st store.Store, location string, opts Options) (*Service, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	m, err := NewModel(a)
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:    st,
		location: location,
		opts:     opts,
		logger:   slog.Default().With("component", "inference", "location", location),
	}
	s.current.Store(m)
	s.observe(m)
	return s, nil
}

func (s *Service) load(ctx context.Context) (*Model, error) {
	var a *artifact.Artifact
	err := resilience.WithTimeout(ctx, s.opts.LoadTimeout, "load-artifact", func(ctx context.Context) error {
		var err error
		a, err = s.store.Load(ctx, s.location)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading model from %s: %w", s.location, err)
	}
	m, err := NewModel(a)
	if err != nil {
		return nil, fmt.Errorf("restoring model from %s: %w", s.location, err)
	}
	return m, nil
}

// Model returns the model currently being served.
func (s *Service) Model() *Model {
	return s.current.Load()
}

func (s *Service) Location() string {
	return s.location
}

func (s *Service) TopK() int {
	return s.opts.TopK
}

func (s *Service) PredictDisease(text string) (string, error) {
	m := s.current.Load()
	if m == nil {
		return "", apperrors.ErrModelUnavailable
	}
	return m.PredictDisease(text)
}

func (s *Service) PredictWithConfidence(text string) (ConfidenceResult, error) {
	m := s.current.Load()
	if m == nil {
		return ConfidenceResult{}, apperrors.ErrModelUnavailable
	}
	return m.PredictWithConfidence(text, s.opts.TopK)
}

// Info describes the served model.
func (s *Service) Info() Info {
	return s.current.Load().Info(s.location)
}

// OnReload registers a hook run after every successful reload.
func (s *Service) OnReload(hook ReloadHook) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, hook)
	s.hooksMu.Unlock()
}

// Reload loads the artifact again and swaps it in. On failure the previous
// model keeps serving and the error is returned. trigger labels the reload
// in logs and metrics.
func (s *Service) Reload(ctx context.Context, trigger string) (Info, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	previous := s.current.Load()
	m, err := s.load(ctx)
	if err != nil {
		s.countReload(trigger, "failure")
		s.logger.Error("model reload failed, keeping previous model",
			"trigger", trigger,
			"model_id", previous.ID(),
			"error", err,
		)
		return previous.Info(s.location), err
	}
	if m.ID() == previous.ID() {
		s.countReload(trigger, "unchanged")
		s.logger.Info("model reload found the same model", "trigger", trigger, "model_id", m.ID())
		return previous.Info(s.location), nil
	}
	s.current.Store(m)
	s.observe(m)
	s.countReload(trigger, "success")
	s.logger.Info("model reloaded",
		"trigger", trigger,
		"previous_model_id", previous.ID(),
		"model_id", m.ID(),
	)

	s.hooksMu.RLock()
	hooks := append([]ReloadHook(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(previous, m)
	}
	return m.Info(s.location), nil
}

func (s *Service) countReload(trigger, status string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ModelReloadsTotal.WithLabelValues(trigger, status).Inc()
	}
}

func (s *Service) observe(m *Model) {
	if s.opts.Metrics == nil {
		return
	}
	s.opts.Metrics.ModelVocabularySize.Set(float64(m.vectorizer.Size()))
	s.opts.Metrics.ModelClasses.Set(float64(len(m.classifier.Classes())))
	s.opts.Metrics.ModelLoadedTimestamp.Set(float64(m.loadedAt.Unix()))
}
