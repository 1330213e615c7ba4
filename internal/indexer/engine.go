// Package indexer implements the search engine: document indexing and
// removal, TF-IDF ranking of plus/minus queries, and per-document matching,
// each available under a sequential or a parallel execution policy.
package indexer

import (
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

// Engine is safe for concurrent use. Finds and matches share a read lock
// and may overlap; adds and removes take the write lock.
type Engine struct {
	mu          sync.RWMutex
	version     atomic.Uint64
	idx         *index.Index
	stopWords   tokenizer.StopWords
	bucketCount int
	maxResults  int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Engine)

// WithBucketCount sets the number of accumulator buckets used per find.
func WithBucketCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bucketCount = n
		}
	}
}

// WithMaxResults sets how many documents a find returns at most.
func WithMaxResults(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxResults = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New builds an empty engine. It fails with ErrInvalidStopWord when a stop
// word contains a control character.
func New(stopWords []string, opts ...Option) (*Engine, error) {
	stop, err := tokenizer.NewStopWords(stopWords)
	if err != nil {
		return nil, fmt.Errorf("building stop words: %w", err)
	}
	e := &Engine{
		idx:         index.New(),
		stopWords:   stop,
		bucketCount: shard.DefaultBucketCount,
		maxResults:  ranker.MaxResults,
		logger:      logger.WithComponent("search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewFromText is New with the stop words given as one space-separated
// string.
func NewFromText(stopWords string, opts ...Option) (*Engine, error) {
	return New(tokenizer.SplitIntoWords(stopWords), opts...)
}

func (e *Engine) StopWords() []string {
	return e.stopWords.Words()
}

// ParseQuery parses query against the engine's stop words in normalized
// form, the way finds and matches see it.
func (e *Engine) ParseQuery(query string) (*parser.Query, error) {
	return parser.Parse(query, e.stopWords, true)
}

// AddDocument indexes text under id. It fails with ErrInvalidDocument when
// id is negative or already live and with ErrInvalidWord when a word
// contains a control character. Nothing is written unless every check
// passes.
func (e *Engine) AddDocument(id int, text string, status index.Status, ratings []int) error {
	_, _, err := e.Insert(id, text, status, ratings)
	return err
}

// Insert is AddDocument that also returns the stored record and its number
// of distinct words, both taken under the same write lock as the insert.
func (e *Engine) Insert(id int, text string, status index.Status, ratings []int) (index.Record, int, error) {
	if id < 0 {
		return index.Record{}, 0, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest,
			"document id %d is negative", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.idx.Contains(id) {
		return index.Record{}, 0, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusConflict,
			"document %d already exists", id)
	}
	words, err := e.splitNoStop(text)
	if err != nil {
		return index.Record{}, 0, err
	}

	record := index.Record{
		ID:     id,
		Rating: index.AverageRating(ratings),
		Status: status,
		Text:   text,
	}
	freqs := index.TermFrequencies(words)
	e.idx.Insert(record, freqs)
	e.version.Add(1)

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.DocumentsLive.Set(float64(e.idx.Count()))
	}
	e.logger.Debug("document indexed",
		"doc_id", id,
		"words", len(words),
		"status", status.String(),
	)
	return record, len(freqs), nil
}

func (e *Engine) splitNoStop(text string) ([]string, error) {
	all := tokenizer.SplitIntoWords(text)
	words := make([]string, 0, len(all))
	for _, word := range all {
		if !tokenizer.IsValidWord(word) {
			return nil, apperrors.Newf(apperrors.ErrInvalidWord, http.StatusBadRequest,
				"word %q contains a control character", word)
		}
		if !e.stopWords.Contains(word) {
			words = append(words, word)
		}
	}
	return words, nil
}

// RemoveDocument deletes id from every structure and reports whether it was
// live. Removing an unknown id is a no-op.
func (e *Engine) RemoveDocument(policy Policy, id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed bool
	switch policy {
	case Parallel:
		removed = e.removeParallel(id)
	default:
		removed = e.idx.Remove(id)
	}
	if !removed {
		return false
	}
	e.version.Add(1)

	if e.metrics != nil {
		e.metrics.DocsRemovedTotal.WithLabelValues(policy.String()).Inc()
		e.metrics.DocumentsLive.Set(float64(e.idx.Count()))
	}
	e.logger.Debug("document removed", "doc_id", id, "policy", policy.String())
	return true
}

// removeParallel detaches the document before the fan-out so no goroutine
// iterates its forward entry, then erases one posting per term concurrently.
func (e *Engine) removeParallel(id int) bool {
	terms, ok := e.idx.Detach(id)
	if !ok {
		return false
	}
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, term := range terms {
		g.Go(func() error {
			e.idx.EraseTerm(term, id)
			return nil
		})
	}
	_ = g.Wait()
	e.idx.Compact(terms)
	return true
}

// FindTopDocuments ranks live documents against query by TF-IDF. A nil
// predicate keeps only StatusActual documents. At most the configured
// maximum of results is returned, ordered by relevance and then rating.
func (e *Engine) FindTopDocuments(policy Policy, query string, predicate Predicate) ([]ranker.Document, error) {
	start := time.Now()
	q, err := parser.Parse(query, e.stopWords, true)
	if err != nil {
		if e.metrics != nil {
			e.metrics.SearchQueriesTotal.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}
	if predicate == nil {
		predicate = StatusIs(index.StatusActual)
	}

	e.mu.RLock()
	docs := e.findAll(policy, q, predicate)
	e.mu.RUnlock()

	docs = ranker.Top(docs, e.maxResults)

	if e.metrics != nil {
		resultType := "hit"
		if len(docs) == 0 {
			resultType = "zero_result"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		e.metrics.SearchLatency.WithLabelValues(policy.String()).Observe(time.Since(start).Seconds())
		e.metrics.SearchResultsCount.Observe(float64(len(docs)))
	}
	return docs, nil
}

// findAll scores every matching document. The caller holds the read lock.
func (e *Engine) findAll(policy Policy, q *parser.Query, predicate Predicate) []ranker.Document {
	acc := shard.NewAccumulator(e.bucketCount)
	total := e.idx.Count()

	score := func(term string) {
		postings, ok := e.idx.Postings(term)
		if !ok {
			return
		}
		idf := ranker.IDF(total, len(postings))
		for id, tf := range postings {
			record, _ := e.idx.Record(id)
			if predicate(id, record.Status, record.Rating) {
				acc.Add(id, tf*idf)
			}
		}
	}
	exclude := func(term string) {
		postings, ok := e.idx.Postings(term)
		if !ok {
			return
		}
		for id := range postings {
			acc.Erase(id)
		}
	}

	switch policy {
	case Parallel:
		forEachParallel(q.PlusWords, score)
		forEachParallel(q.MinusWords, exclude)
	default:
		for _, term := range q.PlusWords {
			score(term)
		}
		for _, term := range q.MinusWords {
			exclude(term)
		}
	}

	entries := acc.DrainSorted()
	docs := make([]ranker.Document, 0, len(entries))
	for _, entry := range entries {
		record, _ := e.idx.Record(entry.DocID)
		docs = append(docs, ranker.Document{
			ID:        entry.DocID,
			Relevance: entry.Value,
			Rating:    record.Rating,
		})
	}
	return docs
}

// forEachParallel runs fn for every term and returns once all calls have
// finished.
func forEachParallel(terms []string, fn func(term string)) {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, term := range terms {
		g.Go(func() error {
			fn(term)
			return nil
		})
	}
	_ = g.Wait()
}

// MatchDocument returns the plus words of query found in document id,
// sorted and without duplicates, together with the document's status. The
// word list is empty when any minus word occurs in the document. An unknown
// id yields an empty list and the zero status.
func (e *Engine) MatchDocument(policy Policy, query string, id int) ([]string, index.Status, error) {
	q, err := parser.Parse(query, e.stopWords, true)
	if err != nil {
		return nil, index.StatusActual, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	record, ok := e.idx.Record(id)
	if !ok {
		return []string{}, index.StatusActual, nil
	}

	switch policy {
	case Parallel:
		return e.matchParallel(q, record), record.Status, nil
	default:
		for _, term := range q.MinusWords {
			if e.idx.HasTerm(id, term) {
				return []string{}, record.Status, nil
			}
		}
		matched := make([]string, 0, len(q.PlusWords))
		for _, term := range q.PlusWords {
			if e.idx.HasTerm(id, term) {
				matched = append(matched, term)
			}
		}
		return matched, record.Status, nil
	}
}

func (e *Engine) matchParallel(q *parser.Query, record index.Record) []string {
	var excluded atomic.Bool
	forEachParallel(q.MinusWords, func(term string) {
		if e.idx.HasTerm(record.ID, term) {
			excluded.Store(true)
		}
	})
	if excluded.Load() {
		return []string{}
	}

	// Plus words are sorted and unique, so flags indexed by position keep
	// the output ordered without a second sort.
	hits := make([]bool, len(q.PlusWords))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, term := range q.PlusWords {
		g.Go(func() error {
			hits[i] = e.idx.HasTerm(record.ID, term)
			return nil
		})
	}
	_ = g.Wait()

	matched := make([]string, 0, len(q.PlusWords))
	for i, hit := range hits {
		if hit {
			matched = append(matched, q.PlusWords[i])
		}
	}
	return matched
}

// WordFrequencies returns a copy of id's term frequencies, empty when id is
// not live.
func (e *Engine) WordFrequencies(id int) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.Frequencies(id)
}

// Document returns the stored record of a live document.
func (e *Engine) Document(id int) (index.Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.Record(id)
}

func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.Count()
}

func (e *Engine) TermCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.TermCount()
}

func (e *Engine) Contains(id int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.Contains(id)
}

// Version is the index generation. Every successful add or remove
// increments it while holding the write lock.
func (e *Engine) Version() uint64 {
	return e.version.Load()
}

// DocumentIDs yields the live ids in ascending order. It iterates over a
// snapshot taken when iteration starts, so the loop body may remove
// documents.
func (e *Engine) DocumentIDs() iter.Seq[int] {
	return func(yield func(int) bool) {
		e.mu.RLock()
		ids := e.idx.IDs()
		e.mu.RUnlock()
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}
