// Command searcher runs the in-memory TF-IDF search server.
//
// Documents arrive over HTTP or, when Kafka is enabled, from the document
// ingest topic, which is replayed from the beginning on every start to
// rebuild the index. Redis caches find results and PostgreSQL keeps
// periodic analytics snapshots; both are optional.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/consumer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

const analyticsBufferSize = 10000

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search server",
		"port", cfg.Server.Port,
		"stop_words", len(cfg.Engine.StopWords),
		"default_policy", cfg.Engine.DefaultPolicy,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	engine, err := indexer.New(cfg.Engine.StopWords,
		indexer.WithBucketCount(cfg.Engine.BucketCount),
		indexer.WithMaxResults(cfg.Engine.MaxResults),
		indexer.WithMetrics(m),
	)
	if err != nil {
		slog.Error("failed to create search engine", "error", err)
		os.Exit(1)
	}
	defaultPolicy, err := indexer.ParsePolicy(cfg.Engine.DefaultPolicy)
	if err != nil {
		slog.Error("invalid default policy", "error", err)
		os.Exit(1)
	}

	queue := analytics.NewRequestQueue(engine, cfg.RequestQueue.Window)
	agg := analytics.NewAggregator()
	opts := []handler.Option{
		handler.WithAggregator(agg),
		handler.WithMetrics(m),
		handler.WithDefaultPolicy(defaultPolicy),
	}

	checker := health.NewChecker()
	checker.Register("index_engine", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", engine.DocumentCount(), engine.TermCount()),
		}
	})

	if cfg.Redis.Enabled {
		redisClient, err := resilience.Connect(ctx, "redis", resilience.RetryConfig{}, func() (*pkgredis.Client, error) {
			return pkgredis.NewClient(cfg.Redis)
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			opts = append(opts, handler.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, m)))
			checker.Register("redis", health.Optional(redisClient.Ping))
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	if cfg.Kafka.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector := analytics.NewCollector(analyticsProducer, analyticsBufferSize)
		collector.Start(ctx)
		defer collector.Close()
		opts = append(opts, handler.WithCollector(collector))

		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
		go func() {
			if err := analyticsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics pipeline started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	h := handler.New(engine, queue, opts...)
	analyticsH := analytics.NewHandler(agg, queue)

	if cfg.Kafka.Enabled {
		onApplied := func(ctx context.Context, event ingestion.DocumentEvent) {
			indexEvent := analytics.IndexEvent{DocumentID: event.ID, Policy: event.Policy}
			if event.Op == ingestion.OpAdd {
				indexEvent.Type = analytics.EventDocumentAdded
				indexEvent.WordCount = len(engine.WordFrequencies(event.ID))
			} else {
				indexEvent.Type = analytics.EventDocumentRemoved
			}
			h.IndexChanged(ctx, indexEvent)
		}
		groupID := fmt.Sprintf("%s-index-%s", cfg.Kafka.ConsumerGroup, uuid.NewString())
		ingestConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest,
			consumer.HandleMessage(engine, m, onApplied),
			kafka.FromBeginning(),
			kafka.WithGroupID(groupID),
		)
		go func() {
			if err := consumer.New(ingestConsumer).Start(ctx); err != nil {
				slog.Error("index consumer error", "error", err)
			}
		}()
		slog.Info("index consumer started",
			"topic", cfg.Kafka.Topics.DocumentIngest,
			"group", groupID,
		)
	}

	if cfg.Postgres.Enabled {
		db, err := resilience.Connect(ctx, "postgres", resilience.RetryConfig{}, func() (*postgres.Client, error) {
			return postgres.New(cfg.Postgres)
		})
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			if err := db.EnsureSchema(ctx); err != nil {
				slog.Error("failed to apply analytics schema", "error", err)
				os.Exit(1)
			}
			store := aggregator.NewStore(db)
			store.StartPeriodicSave(ctx, analyticsH.Report, cfg.Postgres.SnapshotInterval)
			checker.Register("postgres", health.Optional(db.Ping))
			slog.Info("analytics snapshots enabled", "interval", cfg.Postgres.SnapshotInterval)
		}
	}

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
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

	slog.Info("search server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search server stopped", "documents", engine.DocumentCount())
}
