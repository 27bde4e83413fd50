// Command corpus runs the labeled-example ingestion service.
//
// POST /api/v1/examples validates a {symptoms, disease} pair, stores it in
// the training_examples table (idempotent on idempotency_key) and publishes a
// corpus event for downstream consumers. The trainer reads the same table when
// training.corpusSource is "postgres".
//
// Usage:
//
//	go run ./cmd/corpus [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/corpus/ingest"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting corpus service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	repo := ingest.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to postgres")

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, "corpus")
		defer shutdownMetrics(context.Background())
	}

	var publisher kafka.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusIngest)
		defer producer.Close()
		publisher = producer
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.CorpusIngest)
	}

	svc := ingest.NewService(repo, publisher).WithMetrics(m)

	checker := health.NewChecker()
	checker.Register("postgres", health.FuncCheck(db.Ping, health.StatusDown))

	mux := http.NewServeMux()
	ingest.NewHandler(svc).RegisterRoutes(mux)
	checker.RegisterRoutes(mux)

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("corpus service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus service stopped")
}
