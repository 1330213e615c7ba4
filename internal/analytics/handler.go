package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Report is the analytics view served over HTTP and saved as snapshots.
type Report struct {
	Search     AggregatedStats `json:"search"`
	Requests   *QueueStats     `json:"requests,omitempty"`
	CapturedAt time.Time       `json:"captured_at"`
}

type Handler struct {
	aggregator *Aggregator
	queue      *RequestQueue
	logger     *slog.Logger
}

// NewHandler serves reports from aggregator. queue may be nil for services
// that only aggregate the analytics topic.
func NewHandler(aggregator *Aggregator, queue *RequestQueue) *Handler {
	return &Handler{
		aggregator: aggregator,
		queue:      queue,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Report captures the current aggregate and, when the handler has a request
// queue, its window statistics.
func (h *Handler) Report() Report {
	report := Report{
		Search:     h.aggregator.Stats(),
		CapturedAt: time.Now().UTC(),
	}
	if h.queue != nil {
		stats := h.queue.Stats()
		report.Requests = &stats
	}
	return report
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.Report()); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
