// Package handler serves the search engine over HTTP: document management,
// find, match, batch search, deduplication and service statistics.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/dedup"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/middleware"
)

const maxBatchQueries = 1000

type Handler struct {
	engine        *indexer.Engine
	queue         *analytics.RequestQueue
	cache         *cache.QueryCache
	collector     *analytics.Collector
	aggregator    *analytics.Aggregator
	metrics       *metrics.Metrics
	defaultPolicy indexer.Policy
	logger        *slog.Logger
}

type Option func(*Handler)

// WithCache serves finds through a result cache.
func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithCollector publishes analytics events to Kafka.
func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

// WithAggregator records analytics events in process. It is ignored for
// events that go through a collector, whose consumer feeds the aggregator.
func WithAggregator(a *analytics.Aggregator) Option {
	return func(h *Handler) { h.aggregator = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithDefaultPolicy sets the policy used when a request names none.
func WithDefaultPolicy(p indexer.Policy) Option {
	return func(h *Handler) { h.defaultPolicy = p }
}

func New(engine *indexer.Engine, queue *analytics.RequestQueue, opts ...Option) *Handler {
	h := &Handler{
		engine:        engine,
		queue:         queue,
		defaultPolicy: indexer.Sequential,
		logger:        slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/words", h.DocumentWords)
	mux.HandleFunc("POST /api/v1/documents/deduplicate", h.Deduplicate)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search/batch", h.BatchSearch)
	mux.HandleFunc("GET /api/v1/match", h.Match)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

type AddDocumentRequest struct {
	ID      *int         `json:"id"`
	Text    string       `json:"text"`
	Status  index.Status `json:"status"`
	Ratings []int        `json:"ratings"`
}

type DocumentResponse struct {
	ID        int                `json:"id"`
	Rating    int                `json:"rating"`
	Status    index.Status       `json:"status"`
	Words     map[string]float64 `json:"words,omitempty"`
	WordCount int                `json:"word_count"`
}

type SearchResponse struct {
	Query     string            `json:"query"`
	Policy    string            `json:"policy"`
	Status    string            `json:"status,omitempty"`
	Results   []ranker.Document `json:"results"`
	CacheHit  bool              `json:"cache_hit"`
	LatencyMs int64             `json:"latency_ms"`
}

type MatchResponse struct {
	ID     int          `json:"id"`
	Query  string       `json:"query"`
	Words  []string     `json:"words"`
	Status index.Status `json:"status"`
}

type BatchRequest struct {
	Queries []string `json:"queries"`
	Joined  bool     `json:"joined"`
	Policy  string   `json:"policy"`
}

func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req AddDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == nil {
		h.writeError(w, http.StatusBadRequest, "field 'id' is required")
		return
	}

	record, words, err := h.engine.Insert(*req.ID, req.Text, req.Status, req.Ratings)
	if err != nil {
		log.Warn("document rejected", "doc_id", *req.ID, "error", err)
		h.writeAppError(w, err)
		return
	}
	h.IndexChanged(ctx, analytics.IndexEvent{
		Type:       analytics.EventDocumentAdded,
		DocumentID: record.ID,
		WordCount:  words,
	})

	log.Info("document added", "doc_id", record.ID, "words", words)
	h.writeJSON(w, http.StatusCreated, DocumentResponse{
		ID:        record.ID,
		Rating:    record.Rating,
		Status:    record.Status,
		WordCount: words,
	})
}

func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	policy, ok := h.policy(w, r.URL.Query().Get("policy"))
	if !ok {
		return
	}

	if !h.engine.RemoveDocument(policy, id) {
		h.writeAppError(w, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound,
			"document %d does not exist", id))
		return
	}
	h.IndexChanged(ctx, analytics.IndexEvent{
		Type:       analytics.EventDocumentRemoved,
		DocumentID: id,
		Policy:     policy.String(),
	})

	logger.FromContext(ctx).Info("document removed", "doc_id", id, "policy", policy.String())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"policy": policy.String(),
		"status": "removed",
	})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids := slices.Collect(h.engine.DocumentIDs())
	if ids == nil {
		ids = []int{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(ids),
		"ids":   ids,
	})
}

func (h *Handler) DocumentWords(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	record, found := h.engine.Document(id)
	if !found {
		h.writeAppError(w, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound,
			"document %d does not exist", id))
		return
	}
	freqs := h.engine.WordFrequencies(id)
	h.writeJSON(w, http.StatusOK, DocumentResponse{
		ID:        record.ID,
		Rating:    record.Rating,
		Status:    record.Status,
		Words:     freqs,
		WordCount: len(freqs),
	})
}

// Search runs a find. Every successful request, cached or not, counts
// towards the zero-result window.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	policy, ok := h.policy(w, r.URL.Query().Get("policy"))
	if !ok {
		return
	}
	status := index.StatusActual
	statusParam := r.URL.Query().Get("status")
	if statusParam != "" {
		parsed, err := index.ParseStatus(statusParam)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = parsed
	}

	parsed, err := h.engine.ParseQuery(query)
	if err != nil {
		log.Warn("query rejected", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}

	predicate := indexer.StatusIs(status)
	var docs []ranker.Document
	cacheHit := false
	if h.cache != nil {
		docs, cacheHit, err = h.cache.GetOrCompute(ctx, parsed, status, h.engine.Version, func() ([]ranker.Document, error) {
			return h.engine.FindTopDocuments(policy, query, predicate)
		})
		if err == nil {
			h.queue.Record(len(docs))
		}
	} else {
		docs, err = h.queue.AddFindRequest(policy, query, predicate)
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ZeroResultRequests.Set(float64(h.queue.ZeroResultCount()))
	}
	if docs == nil {
		docs = []ranker.Document{}
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"policy", policy.String(),
		"returned", len(docs),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	h.track(analytics.SearchEvent{
		Type:      analytics.EventSearch,
		Query:     query,
		Policy:    policy.String(),
		Status:    status.String(),
		Returned:  len(docs),
		LatencyMs: latencyMs,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:     query,
		Policy:    policy.String(),
		Status:    status.String(),
		Results:   docs,
		CacheHit:  cacheHit,
		LatencyMs: latencyMs,
	})
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "query parameter 'id' must be an integer")
		return
	}
	policy, ok := h.policy(w, r.URL.Query().Get("policy"))
	if !ok {
		return
	}

	words, status, err := h.engine.MatchDocument(policy, query, id)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	if words == nil {
		words = []string{}
	}
	h.track(analytics.SearchEvent{
		Type:      analytics.EventMatch,
		Query:     query,
		Policy:    policy.String(),
		Status:    status.String(),
		Returned:  len(words),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, MatchResponse{
		ID:     id,
		Query:  query,
		Words:  words,
		Status: status,
	})
}

// BatchSearch runs independent queries concurrently. With joined set the
// results come back as one flat list.
func (h *Handler) BatchSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Queries) > maxBatchQueries {
		h.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("at most %d queries per batch", maxBatchQueries))
		return
	}
	policy, ok := h.policy(w, req.Policy)
	if !ok {
		return
	}

	batch := executor.NewBatch(h.engine, policy)
	var (
		results any
		err     error
	)
	if req.Joined {
		results, err = batch.ProcessJoined(ctx, req.Queries)
	} else {
		results, err = batch.Process(ctx, req.Queries)
	}
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"queries": len(req.Queries),
		"joined":  req.Joined,
		"results": results,
	})
}

func (h *Handler) Deduplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	removed := dedup.RemoveDuplicates(h.engine)
	if h.metrics != nil {
		h.metrics.DuplicatesRemovedTotal.Add(float64(len(removed)))
	}
	for _, id := range removed {
		h.IndexChanged(ctx, analytics.IndexEvent{
			Type:       analytics.EventDocumentRemoved,
			DocumentID: id,
			Policy:     indexer.Sequential.String(),
			Duplicate:  true,
		})
	}

	logger.FromContext(ctx).Info("duplicates removed", "count", len(removed))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(removed),
		"removed": removed,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents":  h.engine.DocumentCount(),
		"terms":      h.engine.TermCount(),
		"stop_words": h.engine.StopWords(),
		"requests":   h.queue.Stats(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// IndexChanged drops cached results and records event. It is called for
// every mutation, including those applied from the ingest topic.
func (h *Handler) IndexChanged(ctx context.Context, event analytics.IndexEvent) {
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.logger.Warn("cache invalidation failed", "error", err)
		}
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.track(event)
}

func (h *Handler) track(event any) {
	if h.collector != nil {
		h.collector.Track(event)
		return
	}
	if h.aggregator != nil {
		h.aggregator.Record(event)
	}
}

func (h *Handler) policy(w http.ResponseWriter, value string) (indexer.Policy, bool) {
	if value == "" {
		return h.defaultPolicy, true
	}
	policy, err := indexer.ParsePolicy(value)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return policy, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
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
