// Package training fits the vectorizer and classifier on a labeled corpus,
// evaluates them on a held-out split and persists the result as one
// artifact. A run either saves a complete artifact or saves nothing.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/store"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/tracing"
)

// Report summarises a successful run.
type Report struct {
	ModelID           string         `json:"model_id"`
	Location          string         `json:"location"`
	Source            string         `json:"source"`
	CorpusSize        int            `json:"corpus_size"`
	SkippedRows       int            `json:"skipped_rows"`
	TrainSize         int            `json:"train_size"`
	TestSize          int            `json:"test_size"`
	Classes           []string       `json:"classes"`
	ClassDistribution map[string]int `json:"class_distribution"`
	VocabularySize    int            `json:"vocabulary_size"`
	TrainAccuracy     float64        `json:"train_accuracy"`
	TestAccuracy      float64        `json:"test_accuracy"`
	Duration          time.Duration  `json:"duration"`
	Notified          bool           `json:"notified"`
}

// Orchestrator runs the training pipeline.
type Orchestrator struct {
	source   corpus.Source
	store    store.Store
	location string
	params   Params
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Orchestrator)

// WithNotifier announces saved artifacts through n.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(source corpus.Source, st store.Store, location string, params Params, opts ...Option) (*Orchestrator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if location == "" {
		return nil, fmt.Errorf("%w: artifact location is required", apperrors.ErrConfiguration)
	}
	o := &Orchestrator{
		source:   source,
		store:    st,
		location: location,
		params:   params,
		logger:   slog.Default().With("component", "training"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes load, validate, split, fit, evaluate, save and notify.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	ctx, root := tracing.StartSpan(ctx, "training.run", "")
	root.SetAttr("location", o.location)
	defer func() {
		root.End()
		root.LogTo(o.logger)
	}()

	report, err := o.run(ctx, start)
	root.RecordError(err)
	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		o.metrics.TrainingRunsTotal.WithLabelValues(status).Inc()
		o.metrics.TrainingDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			o.metrics.TrainingAccuracy.WithLabelValues("train").Set(report.TrainAccuracy)
			o.metrics.TrainingAccuracy.WithLabelValues("test").Set(report.TestAccuracy)
		}
	}
	if err != nil {
		o.logger.Error("training failed", "location", o.location, "error", err)
		return nil, err
	}
	o.logger.Info("training completed",
		"model_id", report.ModelID,
		"location", report.Location,
		"train_size", report.TrainSize,
		"test_size", report.TestSize,
		"classes", len(report.Classes),
		"vocabulary_size", report.VocabularySize,
		"train_accuracy", report.TrainAccuracy,
		"test_accuracy", report.TestAccuracy,
		"duration", report.Duration,
	)
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, start time.Time) (*Report, error) {
	_, span := tracing.StartChildSpan(ctx, "load_corpus")
	c, err := o.source.Load(ctx)
	span.RecordError(err)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("loading corpus from %s: %w", o.source.Name(), err)
	}
	span.SetAttr("examples", c.Len())
	span.SetAttr("skipped", c.Skipped)

	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: corpus %s is empty", apperrors.ErrConfiguration, o.source.Name())
	}
	if diseases := c.Diseases(); len(diseases) < 2 {
		return nil, fmt.Errorf("%w: corpus %s has %d distinct disease(s), need at least 2",
			apperrors.ErrConfiguration, o.source.Name(), len(diseases))
	}

	_, span = tracing.StartChildSpan(ctx, "split")
	trainIdx, testIdx, err := Split(c.Len(), o.params.TestRatio, o.params.Seed)
	span.RecordError(err)
	span.End()
	if err != nil {
		return nil, err
	}
	trainTexts, trainLabels := subset(c.Examples, trainIdx)
	testTexts, testLabels := subset(c.Examples, testIdx)
	if n := countDistinct(trainLabels); n < 2 {
		return nil, fmt.Errorf("%w: training split has %d distinct disease(s), need at least 2",
			apperrors.ErrConfiguration, n)
	}

	_, span = tracing.StartChildSpan(ctx, "fit_vectorizer")
	vec, err := vectorizer.New(o.params.VectorizerOptions())
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	trainX, err := vec.FitTransform(trainTexts)
	span.RecordError(err)
	span.SetAttr("vocabulary_size", vec.Size())
	span.End()
	if err != nil {
		return nil, fmt.Errorf("fitting vectorizer: %w", err)
	}

	_, span = tracing.StartChildSpan(ctx, "fit_classifier")
	nb, err := classifier.NewNaiveBayes(o.params.Alpha)
	if err == nil {
		err = nb.Fit(trainX, trainLabels)
	}
	span.RecordError(err)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("fitting classifier: %w", err)
	}

	_, span = tracing.StartChildSpan(ctx, "evaluate")
	trainAcc, err := accuracyOf(nb, trainX, trainLabels)
	if err != nil {
		span.End()
		return nil, err
	}
	testX, err := vec.TransformAll(testTexts)
	if err != nil {
		span.End()
		return nil, err
	}
	testAcc, err := accuracyOf(nb, testX, testLabels)
	span.SetAttr("train_accuracy", trainAcc)
	span.SetAttr("test_accuracy", testAcc)
	span.End()
	if err != nil {
		return nil, err
	}

	summary := artifact.TrainingSummary{
		Source:        c.Source,
		CorpusSize:    c.Len(),
		SkippedRows:   c.Skipped,
		TrainSize:     len(trainIdx),
		TestSize:      len(testIdx),
		TestRatio:     o.params.TestRatio,
		Seed:          o.params.Seed,
		TrainAccuracy: trainAcc,
		TestAccuracy:  testAcc,
		DurationMs:    time.Since(start).Milliseconds(),
	}
	a, err := artifact.New(vec, nb, summary)
	if err != nil {
		return nil, fmt.Errorf("building artifact: %w", err)
	}

	_, span = tracing.StartChildSpan(ctx, "save_artifact")
	err = o.store.Save(ctx, o.location, a)
	span.RecordError(err)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("saving artifact: %w", err)
	}

	report := &Report{
		ModelID:           a.ModelID,
		Location:          o.location,
		Source:            c.Source,
		CorpusSize:        c.Len(),
		SkippedRows:       c.Skipped,
		TrainSize:         len(trainIdx),
		TestSize:          len(testIdx),
		Classes:           nb.Classes(),
		ClassDistribution: c.Distribution(),
		VocabularySize:    vec.Size(),
		TrainAccuracy:     trainAcc,
		TestAccuracy:      testAcc,
	}

	if o.notifier != nil {
		_, span = tracing.StartChildSpan(ctx, "notify")
		err := o.notifier.ModelUpdated(ctx, artifact.UpdatedEventFor(o.location, a))
		span.RecordError(err)
		span.End()
		if err != nil {
			o.logger.Warn("model saved but update notification failed",
				"model_id", a.ModelID,
				"error", err,
			)
		} else {
			report.Notified = true
		}
	}
	report.Duration = time.Since(start)
	return report, nil
}

func subset(examples []corpus.Example, idx []int) (texts, labels []string) {
	texts = make([]string, len(idx))
	labels = make([]string, len(idx))
	for i, j := range idx {
		texts[i] = examples[j].Symptoms
		labels[i] = examples[j].Disease
	}
	return texts, labels
}

func countDistinct(labels []string) int {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

func accuracyOf(nb *classifier.NaiveBayes, X []vectorizer.Vector, labels []string) (float64, error) {
	if len(X) == 0 {
		return 0, nil
	}
	correct := 0
	for i, v := range X {
		pred, err := nb.Predict(v)
		if err != nil {
			return 0, fmt.Errorf("evaluating: %w", err)
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X)), nil
}
