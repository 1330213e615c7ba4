// Package publisher validates document events and writes them to the
// ingest topic, keyed by document id so events for one document stay in
// order.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
)

// Producer is the Kafka side of the publisher.
type Producer interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	producer Producer
	logger   *slog.Logger
}

func New(producer Producer) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

func toKafkaEvent(event ingestion.DocumentEvent) kafka.Event {
	if event.PublishedAt.IsZero() {
		event.PublishedAt = time.Now().UTC()
	}
	return kafka.Event{Key: strconv.Itoa(event.ID), Value: event}
}

// Publish validates and publishes a single event.
func (p *Publisher) Publish(ctx context.Context, event ingestion.DocumentEvent) (*ingestion.IngestResponse, error) {
	if err := validator.ValidateDocumentEvent(&event); err != nil {
		return nil, err
	}
	if err := p.producer.Publish(ctx, toKafkaEvent(event)); err != nil {
		return nil, fmt.Errorf("publishing document %d: %w", event.ID, err)
	}
	p.logger.Debug("document event published", "doc_id", event.ID, "op", event.Op)
	return &ingestion.IngestResponse{
		DocumentID: event.ID,
		Op:         event.Op,
		Status:     "ACCEPTED",
	}, nil
}

// PublishBatch validates every event first and publishes nothing if any is
// invalid.
func (p *Publisher) PublishBatch(ctx context.Context, events []ingestion.DocumentEvent) error {
	batch := make([]kafka.Event, 0, len(events))
	for i := range events {
		if err := validator.ValidateDocumentEvent(&events[i]); err != nil {
			return fmt.Errorf("event %d (document %d): %w", i, events[i].ID, err)
		}
		batch = append(batch, toKafkaEvent(events[i]))
	}
	if len(batch) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, batch); err != nil {
		return fmt.Errorf("publishing %d document events: %w", len(batch), err)
	}
	p.logger.Info("document events published", "count", len(batch))
	return nil
}
