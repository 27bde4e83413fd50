// Command predictor serves disease predictions over HTTP and the internal
// RPC port.
//
// The model artifact is loaded once at start; a missing or corrupt artifact
// aborts startup. The served model is replaced when the artifact file
// changes, when a model-updated event arrives on Kafka, or on
// POST /api/v1/model/reload.
//
// Usage:
//
//	go run ./cmd/predictor [-config configs/development.yaml]
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
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/store"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/cache"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/handler"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/reload"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/rpcapi"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/redis"
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
	slog.Info("starting predictor", "port", cfg.Server.Port, "model", cfg.Model.Location)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, "predictor")
		defer shutdownMetrics(context.Background())
	}

	var db *postgres.Client
	if cfg.Model.Store == store.KindPostgres {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}
	artifacts, err := store.New(cfg.Model.Store, db)
	if err != nil {
		slog.Error("invalid model store", "error", err)
		os.Exit(1)
	}

	svc, err := inference.NewService(ctx, artifacts, cfg.Model.Location, inference.Options{
		TopK:        cfg.Inference.TopK,
		LoadTimeout: cfg.Model.LoadTimeout,
		Metrics:     m,
	})
	if err != nil {
		slog.Error("failed to load model", "location", cfg.Model.Location, "error", err)
		os.Exit(1)
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, prediction cache is local only", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	cacheOpts := cache.Options{
		LocalSize: cfg.Inference.LocalCacheSize,
		TTL:       cfg.Redis.CacheTTL,
		KeyPrefix: cfg.Redis.KeyPrefix,
		Metrics:   m,
	}
	var predictionCache *cache.PredictionCache
	if redisClient != nil {
		predictionCache, err = cache.New(redisClient, cacheOpts)
	} else {
		predictionCache, err = cache.New(nil, cacheOpts)
	}
	if err != nil {
		slog.Error("failed to create prediction cache", "error", err)
		os.Exit(1)
	}
	svc.OnReload(func(previous, current *inference.Model) {
		if err := predictionCache.Invalidate(context.Background()); err != nil {
			slog.Warn("cache invalidation after reload failed", "error", err)
		}
	})

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PredictionEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Inference.EventBufferSize, 100, 2*time.Second)
		collector.Start(ctx)
		defer collector.Close()

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ModelUpdates, "predictor", reload.KafkaHandler(svc))
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("model update consumer stopped", "error", err)
			}
		}()
		slog.Info("following model updates", "topic", cfg.Kafka.Topics.ModelUpdates)
	}

	if cfg.Model.WatchFile && cfg.Model.Store == store.KindFile {
		watcher, err := reload.NewWatcher(svc, reload.DefaultDebounce)
		if err != nil {
			slog.Warn("artifact file watch disabled", "error", err)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	if cfg.RPC.Enabled {
		rpcServer := grpc.NewServer()
		rpcapi.New(svc, predictionCache, cfg.Inference.MaxSymptomLength).Register(rpcServer)
		go func() {
			if err := rpcServer.Serve(cfg.RPC.Addr); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
	}

	checker := health.NewChecker()
	checker.Register("model", func(ctx context.Context) health.ComponentHealth {
		model := svc.Model()
		if model == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no model loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: "model " + model.ID()}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		return health.FuncCheck(predictionCache.Ping, health.StatusDegraded)(ctx)
	})

	mux := http.NewServeMux()
	handler.New(svc, predictionCache, collector, m, cfg.Inference.MaxSymptomLength).RegisterRoutes(mux)
	checker.RegisterRoutes(mux)

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Inference.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("predictor listening", "addr", server.Addr, "model_id", svc.Model().ID())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// Handlers still draining may track events; wait for them before the
	// collector is closed.
	<-shutdownDone
	slog.Info("predictor stopped")
}
