package analytics

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
)

// DefaultWindow is the number of most recent requests the queue remembers,
// one per minute of a day.
const DefaultWindow = 1440

// Searcher is the part of the engine the request queue calls.
type Searcher interface {
	FindTopDocuments(policy indexer.Policy, query string, predicate indexer.Predicate) ([]ranker.Document, error)
}

type queryResult struct {
	tick       uint64
	zeroResult bool
}

// RequestQueue runs finds and counts how many of the last window requests
// returned nothing. It is safe for concurrent use.
type RequestQueue struct {
	searcher Searcher
	window   int

	mu       sync.Mutex
	requests []queryResult
	tick     uint64
	zeros    int
}

type QueueStats struct {
	Requests    uint64 `json:"requests"`
	InWindow    int    `json:"in_window"`
	ZeroResults int    `json:"zero_results"`
	Window      int    `json:"window"`
}

// NewRequestQueue creates a queue over searcher. A non-positive window means
// DefaultWindow.
func NewRequestQueue(searcher Searcher, window int) *RequestQueue {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RequestQueue{
		searcher: searcher,
		window:   window,
		requests: make([]queryResult, 0, window),
	}
}

// AddFindRequest runs the find and records whether it came back empty. A
// rejected query is returned as an error and not recorded.
func (q *RequestQueue) AddFindRequest(policy indexer.Policy, query string, predicate indexer.Predicate) ([]ranker.Document, error) {
	docs, err := q.searcher.FindTopDocuments(policy, query, predicate)
	if err != nil {
		return nil, err
	}
	q.Record(len(docs))
	return docs, nil
}

// Record counts one request that returned results documents. Callers that
// serve a find without going through AddFindRequest, such as a cache hit,
// use it directly.
func (q *RequestQueue) Record(results int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tick++
	for len(q.requests) > 0 && q.tick-q.requests[0].tick >= uint64(q.window) {
		if q.requests[0].zeroResult {
			q.zeros--
		}
		q.requests = q.requests[1:]
	}
	zero := results == 0
	q.requests = append(q.requests, queryResult{tick: q.tick, zeroResult: zero})
	if zero {
		q.zeros++
	}
}

// ZeroResultCount returns how many requests inside the window found nothing.
func (q *RequestQueue) ZeroResultCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.zeros
}

func (q *RequestQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Requests:    q.tick,
		InWindow:    len(q.requests),
		ZeroResults: q.zeros,
		Window:      q.window,
	}
}
