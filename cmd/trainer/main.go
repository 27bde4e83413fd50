// Command trainer fits the symptom classifier on a labeled corpus and saves
// the model artifact.
//
// The corpus comes from a CSV file (columns "symptoms" and "disease") or from
// the training_examples table. On success the artifact is written to the
// configured location, a model-updated event is published when Kafka is
// enabled, and the training report is printed as JSON on stdout.
//
// Usage:
//
//	go run ./cmd/trainer [-config configs/development.yaml] [-corpus data.csv] [-out model.scma] [-seed 43]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/store"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/training"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "CSV corpus path (overrides training.corpusPath)")
	out := flag.String("out", "", "artifact location (overrides model.location)")
	seed := flag.Int64("seed", -1, "split seed (overrides training.seed)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusPath != "" {
		cfg.Training.CorpusSource = "csv"
		cfg.Training.CorpusPath = *corpusPath
	}
	if *out != "" {
		cfg.Model.Location = *out
	}
	if *seed >= 0 {
		cfg.Training.Seed = *seed
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var db *postgres.Client
	if cfg.Training.CorpusSource == "postgres" || cfg.Model.Store == store.KindPostgres {
		var err error
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
	}

	var source corpus.Source
	switch cfg.Training.CorpusSource {
	case "postgres":
		source = corpus.NewPostgresSource(db)
	default:
		source = corpus.NewCSVSource(cfg.Training.CorpusPath, cfg.Training.TextColumn, cfg.Training.LabelColumn)
	}

	artifacts, err := store.New(cfg.Model.Store, db)
	if err != nil {
		return err
	}
	if pg, ok := artifacts.(*store.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	opts := []training.Option{training.WithMetrics(metrics.New())}
	if cfg.Kafka.Enabled && cfg.Training.NotifyUpdate {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ModelUpdates)
		defer producer.Close()
		opts = append(opts, training.WithNotifier(training.NewKafkaNotifier(producer)))
	}

	orchestrator, err := training.New(source, artifacts, cfg.Model.Location, training.ParamsFromConfig(cfg.Training), opts...)
	if err != nil {
		return err
	}
	report, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
