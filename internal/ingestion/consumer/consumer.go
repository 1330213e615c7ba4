// Package consumer applies document events from the ingest topic to the
// search engine.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

// Engine is the mutating side of the search engine.
type Engine interface {
	AddDocument(id int, text string, status index.Status, ratings []int) error
	RemoveDocument(policy indexer.Policy, id int) bool
}

// AppliedFunc is called after an event changed the index.
type AppliedFunc func(ctx context.Context, event ingestion.DocumentEvent)

// IndexConsumer drives a Kafka consumer whose handler is HandleMessage.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start consumes until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a handler that applies each event to engine. Events
// that cannot be decoded or that the engine rejects as invalid input are
// logged, counted and skipped, since redelivery would fail the same way.
// m and onApplied may be nil.
func HandleMessage(engine Engine, m *metrics.Metrics, onApplied AppliedFunc) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	count := func(op ingestion.Op, status string) {
		if m != nil {
			m.IngestEventsTotal.WithLabelValues(string(op), status).Inc()
		}
	}

	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.DocumentEvent](value)
		if err != nil {
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			count("unknown", "malformed")
			return nil
		}
		if err := validator.ValidateDocumentEvent(&event); err != nil {
			logger.Warn("skipping invalid document event", "doc_id", event.ID, "error", err)
			count(event.Op, "rejected")
			return nil
		}

		changed, err := apply(engine, event)
		if err != nil {
			if apperrors.IsInvalidInput(err) {
				logger.Warn("engine rejected document event",
					"doc_id", event.ID,
					"op", event.Op,
					"error", err,
				)
				count(event.Op, "rejected")
				return nil
			}
			count(event.Op, "failed")
			return fmt.Errorf("applying %s for document %d: %w", event.Op, event.ID, err)
		}

		count(event.Op, "applied")
		if changed && onApplied != nil {
			onApplied(ctx, event)
		}
		logger.Debug("document event applied",
			"doc_id", event.ID,
			"op", event.Op,
			"changed", changed,
		)
		return nil
	}
}

func apply(engine Engine, event ingestion.DocumentEvent) (bool, error) {
	switch event.Op {
	case ingestion.OpAdd:
		if err := engine.AddDocument(event.ID, event.Text, event.Status, event.Ratings); err != nil {
			return false, err
		}
		return true, nil
	case ingestion.OpRemove:
		policy, err := indexer.ParsePolicy(event.Policy)
		if err != nil {
			return false, errors.Join(apperrors.ErrInvalidInput, err)
		}
		return engine.RemoveDocument(policy, event.ID), nil
	default:
		return false, fmt.Errorf("%w: unknown op %q", apperrors.ErrInvalidInput, event.Op)
	}
}
