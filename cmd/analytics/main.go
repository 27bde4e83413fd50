// Command analytics runs the prediction analytics service.
//
// It consumes prediction events from Kafka, aggregates them in memory
// (totals, per-disease counts, blank inputs, low-confidence predictions,
// cache hit rate, latency percentiles), serves GET /api/v1/analytics and
// snapshots the aggregate to the prediction_snapshots table.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/analytics/aggregator"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, "analytics")
		defer shutdownMetrics(context.Background())
	}

	agg := analytics.NewAggregator(nil, cfg.Analytics, m)
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PredictionEvents, "analytics", analytics.HandleEvent(agg))
		agg.SetConsumer(consumer)
		go func() {
			if err := agg.Start(ctx); err != nil {
				slog.Error("aggregator error", "error", err)
			}
		}()
		slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.PredictionEvents)
	} else {
		slog.Warn("kafka disabled, no prediction events will be received")
	}

	checker := health.NewChecker()
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "snapshots disabled"}
		})
	} else {
		defer db.Close()
		snapshots := aggregator.NewStore(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare snapshot table", "error", err)
			os.Exit(1)
		}
		snapshots.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		checker.Register("postgres", health.FuncCheck(db.Ping, health.StatusDegraded))
	}

	mux := http.NewServeMux()
	analytics.NewHandler(agg).RegisterRoutes(mux)
	checker.RegisterRoutes(mux)

	var chain http.Handler = mux
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
