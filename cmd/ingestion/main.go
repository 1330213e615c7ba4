// Command ingestion publishes document events to the ingest topic.
//
// By default it serves POST /api/v1/ingest and POST /api/v1/ingest/batch.
// With -file it instead reads one JSON document event per line, publishes
// them in batches and exits.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml] [-port 8081]
//	go run ./cmd/ingestion -file documents.jsonl [-batch 500]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/middleware"
)

const maxLineBytes = 2 << 20

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "HTTP port, overrides server.port")
	file := flag.String("file", "", "JSON-lines file of document events to publish")
	batchSize := flag.Int("batch", 500, "events per Kafka write in -file mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", producer.Topic())
	pub := publisher.New(producer)

	if *file != "" {
		published, err := publishFile(ctx, pub, *file, *batchSize)
		if err != nil {
			slog.Error("bulk publish failed", "file", *file, "published", published, "error", err)
			os.Exit(1)
		}
		slog.Info("bulk publish finished", "file", *file, "published", published)
		return
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	h := handler.New(pub)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/ingest", h.Ingest)
	mux.HandleFunc("POST /api/v1/ingest/batch", h.IngestBatch)
	mux.HandleFunc("GET /health", h.Health)

	var chain http.Handler = mux
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
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}

// publishFile streams events from path in batches of size. A malformed line
// stops the run; batches already written stay published.
func publishFile(ctx context.Context, pub *publisher.Publisher, path string, size int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if size <= 0 {
		size = 500
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	published := 0
	batch := make([]ingestion.DocumentEvent, 0, size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := pub.PublishBatch(ctx, batch); err != nil {
			return err
		}
		published += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var event ingestion.DocumentEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return published, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, event)
		if len(batch) == size {
			if err := flush(); err != nil {
				return published, fmt.Errorf("batch ending at line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return published, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := flush(); err != nil {
		return published, fmt.Errorf("final batch: %w", err)
	}
	return published, nil
}
