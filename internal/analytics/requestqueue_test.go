package analytics

import (
	"errors"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewFromText("and in at")
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	docs := []string{
		"curly cat curly tail",
		"curly dog and fancy collar",
		"big cat fancy collar ",
		"big dog sparrow Eugene",
		"big dog sparrow Vasiliy",
	}
	for i, text := range docs {
		if err := e.AddDocument(i+1, text, index.StatusActual, []int{1, 2, 3}); err != nil {
			t.Fatalf("adding document: %v", err)
		}
	}
	return e
}

func TestRequestQueueWindow(t *testing.T) {
	e := newEngine(t)
	q := NewRequestQueue(e, 0)

	for i := 0; i < 1439; i++ {
		if _, err := q.AddFindRequest(indexer.Sequential, "empty request", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := q.ZeroResultCount(); got != 1439 {
		t.Fatalf("expected 1439 zero-result requests, got %d", got)
	}

	// Each of these pushes one old empty request out of the window.
	for _, query := range []string{"curly dog", "big collar", "sparrow"} {
		docs, err := q.AddFindRequest(indexer.Sequential, query, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) == 0 {
			t.Fatalf("expected results for %q", query)
		}
	}
	if got := q.ZeroResultCount(); got != 1437 {
		t.Errorf("expected 1437 zero-result requests, got %d", got)
	}

	stats := q.Stats()
	if stats.Requests != 1442 || stats.InWindow != DefaultWindow || stats.Window != DefaultWindow {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRequestQueueSmallWindow(t *testing.T) {
	q := NewRequestQueue(newEngine(t), 3)
	for _, n := range []int{0, 0, 1, 0, 2, 3} {
		q.Record(n)
	}
	if got := q.ZeroResultCount(); got != 1 {
		t.Errorf("expected 1 zero-result request in the last 3, got %d", got)
	}
	if got := q.Stats().InWindow; got != 3 {
		t.Errorf("expected 3 requests in window, got %d", got)
	}
}

func TestRequestQueueSkipsRejectedQueries(t *testing.T) {
	q := NewRequestQueue(newEngine(t), 10)
	_, err := q.AddFindRequest(indexer.Parallel, "cat --dog", nil)
	if !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if stats := q.Stats(); stats.Requests != 0 || stats.ZeroResults != 0 {
		t.Errorf("rejected query must not be recorded, got %+v", stats)
	}
}

func TestRequestQueuePredicate(t *testing.T) {
	q := NewRequestQueue(newEngine(t), 10)
	docs, err := q.AddFindRequest(indexer.Sequential, "curly", indexer.StatusIs(index.StatusBanned))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 || q.ZeroResultCount() != 1 {
		t.Errorf("expected an empty banned-only result to be counted, got %v", docs)
	}
}

func TestRequestQueueConcurrent(t *testing.T) {
	q := NewRequestQueue(newEngine(t), 100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				q.Record(j % 2)
			}
		}()
	}
	wg.Wait()
	stats := q.Stats()
	if stats.Requests != 500 || stats.InWindow != 100 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.ZeroResults < 0 || stats.ZeroResults > 100 {
		t.Errorf("zero results out of range: %d", stats.ZeroResults)
	}
}
