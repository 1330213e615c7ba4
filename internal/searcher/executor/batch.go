// Package executor runs batches of independent queries concurrently.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
)

// Searcher is the part of the engine a batch needs.
type Searcher interface {
	FindTopDocuments(policy indexer.Policy, query string, predicate indexer.Predicate) ([]ranker.Document, error)
}

type Batch struct {
	searcher Searcher
	policy   indexer.Policy
	limit    int
	logger   *slog.Logger
}

// NewBatch returns a batch runner whose queries each use policy internally,
// independent of the fan-out across queries.
func NewBatch(searcher Searcher, policy indexer.Policy) *Batch {
	return &Batch{
		searcher: searcher,
		policy:   policy,
		limit:    runtime.GOMAXPROCS(0),
		logger:   slog.Default().With("component", "batch-executor"),
	}
}

// Process runs every query with the default predicate and returns one
// result list per query, in input order. The first failing query cancels
// the batch and its error is returned.
func (b *Batch) Process(ctx context.Context, queries []string) ([][]ranker.Document, error) {
	start := time.Now()
	results := make([][]ranker.Document, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, query := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs, err := b.searcher.FindTopDocuments(b.policy, query, nil)
			if err != nil {
				return fmt.Errorf("query %d %q: %w", i, query, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.Info("batch processed",
		"queries", len(queries),
		"policy", b.policy.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

// ProcessJoined is Process flattened into a single list ordered by query
// and then by relevance.
func (b *Batch) ProcessJoined(ctx context.Context, queries []string) ([]ranker.Document, error) {
	results, err := b.Process(ctx, queries)
	if err != nil {
		return nil, err
	}
	return merger.Join(results), nil
}

// ProcessQueries runs queries concurrently, each with the sequential policy.
func ProcessQueries(ctx context.Context, searcher Searcher, queries []string) ([][]ranker.Document, error) {
	return NewBatch(searcher, indexer.Sequential).Process(ctx, queries)
}

func ProcessQueriesJoined(ctx context.Context, searcher Searcher, queries []string) ([]ranker.Document, error) {
	return NewBatch(searcher, indexer.Sequential).ProcessJoined(ctx, queries)
}
