// Package cache keeps find results in Redis, keyed by the normalized query,
// the status filter and the index generation the result was computed at.
// Every index mutation also invalidates the whole cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-server/pkg/redis"
)

const keyPrefix = "search:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	client  Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over client. m may be nil.
func New(client Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) Get(ctx context.Context, q *parser.Query, status index.Status, gen uint64) ([]ranker.Document, bool) {
	key := buildKey(q, status, gen)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var docs []ranker.Document
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", q.Raw, "key", key)
	return docs, true
}

func (c *QueryCache) Set(ctx context.Context, q *parser.Query, status index.Status, gen uint64, docs []ranker.Document) {
	key := buildKey(q, status, gen)
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs compute once per key among
// concurrent callers and caches its result. The bool reports a cache hit.
//
// generation reports the current index generation. The key is built from
// the generation read before compute, and the result is not stored when the
// generation moved while compute ran.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q *parser.Query,
	status index.Status,
	generation func() uint64,
	compute func() ([]ranker.Document, error),
) ([]ranker.Document, bool, error) {
	gen := generation()
	if docs, ok := c.Get(ctx, q, status, gen); ok {
		return docs, true, nil
	}
	key := buildKey(q, status, gen)
	val, err, _ := c.group.Do(key, func() (any, error) {
		docs, err := compute()
		if err != nil {
			return nil, err
		}
		if now := generation(); now != gen {
			c.logger.Debug("index changed during compute, result not cached",
				"key", key, "generation", gen, "now", now)
			return docs, nil
		}
		c.Set(ctx, q, status, gen, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ranker.Document), false, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Debug("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(q *parser.Query, status index.Status, gen uint64) string {
	raw := fmt.Sprintf("%s:status=%s:gen=%d", normalizeQuery(q), status, gen)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery renders a parsed query so that queries differing only in
// word order or repetition share a key. Words are case-sensitive.
func normalizeQuery(q *parser.Query) string {
	parts := []string{"+" + strings.Join(q.PlusWords, " ")}
	if len(q.MinusWords) > 0 {
		parts = append(parts, "-"+strings.Join(q.MinusWords, " "))
	}
	return strings.Join(parts, "|")
}
