package analytics

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	TotalMatches      int64        `json:"total_matches"`
	DocsAdded         int64        `json:"docs_added"`
	DocsRemoved       int64        `json:"docs_removed"`
	DuplicatesRemoved int64        `json:"duplicates_removed"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// maxLatencies bounds the latency sample kept for percentiles.
const maxLatencies = 10000

// Aggregator folds search and index events into running totals. Events
// arrive either in-process through Record or from the analytics topic
// through HandleEvent.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	totalMatches      atomic.Int64
	docsAdded         atomic.Int64
	docsRemoved       atomic.Int64
	duplicates        atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, maxLatencies),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds a SearchEvent or IndexEvent into the totals. Other values
// are ignored.
func (a *Aggregator) Record(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearchEvent(e)
	case IndexEvent:
		a.recordIndexEvent(e)
	}
}

// HandleEvent decodes analytics topic messages by their type field.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var head struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &head); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch head.Type {
		case EventSearch, EventMatch:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.recordSearchEvent(event)
		case EventDocumentAdded, EventDocumentRemoved:
			event, err := kafka.DecodeJSON[IndexEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode index event", "error", err)
				return nil
			}
			agg.recordIndexEvent(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", head.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	if event.Type == EventMatch {
		a.totalMatches.Add(1)
		return
	}
	a.totalSearches.Add(1)

	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.Returned == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) == maxLatencies {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[event.Query]++
	if event.Returned == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordIndexEvent(event IndexEvent) {
	switch event.Type {
	case EventDocumentAdded:
		a.docsAdded.Add(1)
	case EventDocumentRemoved:
		a.docsRemoved.Add(1)
		if event.Duplicate {
			a.duplicates.Add(1)
		}
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:     a.totalSearches.Load(),
		TotalMatches:      a.totalMatches.Load(),
		DocsAdded:         a.docsAdded.Load(),
		DocsRemoved:       a.docsRemoved.Load(),
		DuplicatesRemoved: a.duplicates.Load(),
		CacheHits:         a.cacheHits.Load(),
		CacheMisses:       a.cacheMisses.Load(),
		ZeroResultCount:   a.zeroResults.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties ordered by query text.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(result, func(x, y QueryCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Query, y.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
