// Package handler serves the HTTP surface of the ingestion service: it
// accepts document events and publishes them to the ingest topic.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
)

const maxBatchEvents = 10000

// Publisher accepts validated document events.
type Publisher interface {
	Publish(ctx context.Context, event ingestion.DocumentEvent) (*ingestion.IngestResponse, error)
	PublishBatch(ctx context.Context, events []ingestion.DocumentEvent) error
}

type Handler struct {
	publisher Publisher
	logger    *slog.Logger
}

func New(pub Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest publishes a single document event.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var event ingestion.DocumentEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.publisher.Publish(ctx, event)
	if err != nil {
		if h.writeValidationError(w, err) {
			return
		}
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("document event accepted",
		"doc_id", resp.DocumentID,
		"op", resp.Op,
	)
	h.writeJSON(w, http.StatusAccepted, resp)
}

// IngestBatch publishes a JSON array of events, or none of them if any is
// invalid.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var events []ingestion.DocumentEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(events) > maxBatchEvents {
		h.writeError(w, http.StatusRequestEntityTooLarge, "too many events in batch")
		return
	}

	if err := h.publisher.PublishBatch(ctx, events); err != nil {
		if h.writeValidationError(w, err) {
			return
		}
		log.Error("batch ingestion failed", "error", err, "events", len(events))
		h.writeError(w, apperrors.HTTPStatusCode(err), "ingestion failed")
		return
	}
	log.Info("document events accepted", "events", len(events))
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": len(events),
		"status":   "ACCEPTED",
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) bool {
	var validationErr *validator.ValidationError
	if !errors.As(err, &validationErr) {
		return false
	}
	h.writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"detail": err.Error(),
		"fields": validationErr.Fields,
	})
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
