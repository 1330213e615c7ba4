// Command analytics aggregates the analytics topic published by one or more
// search servers.
//
// It folds search, match and index events into running totals, serves them
// at GET /api/v1/analytics and, when PostgreSQL is enabled, saves periodic
// snapshots listed at GET /api/v1/analytics/snapshots.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8082]
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

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "HTTP port, overrides server.port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg),
		kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-analytics"),
	)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	analyticsHandler := analytics.NewHandler(agg, nil)
	checker := health.NewChecker()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)

	if cfg.Postgres.Enabled {
		db, err := resilience.Connect(ctx, "postgres", resilience.RetryConfig{MaxAttempts: 5}, func() (*postgres.Client, error) {
			return postgres.New(cfg.Postgres)
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to apply analytics schema", "error", err)
			os.Exit(1)
		}
		store := aggregator.NewStore(db)
		store.StartPeriodicSave(ctx, analyticsHandler.Report, cfg.Postgres.SnapshotInterval)
		mux.HandleFunc("GET /api/v1/analytics/snapshots", store.Snapshots)
		checker.Register("postgres", health.Optional(db.Ping))
	}

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
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
