// Command demo drives the search engine from the console: it indexes a
// small corpus, reports rejected documents and queries, prints find and
// match results, runs a batch, removes duplicates and exercises the
// request queue. Results go to stdout and timing logs to stderr.
//
// Usage:
//
//	go run ./cmd/demo [-policy par] [-log-level debug]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/dedup"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
)

type document struct {
	id      int
	text    string
	status  index.Status
	ratings []int
}

var corpus = []document{
	{1, "funny pet and nasty rat", index.StatusActual, []int{7, 2, 7}},
	{2, "funny pet with curly hair", index.StatusActual, []int{1, 2}},
	{3, "funny pet with curly hair", index.StatusActual, []int{1, 2}},
	{4, "funny pet and curly hair", index.StatusActual, []int{1, 2}},
	{5, "funny funny pet and nasty nasty rat", index.StatusActual, []int{1, 2}},
	{6, "funny pet and not very nasty rat", index.StatusActual, []int{1, 2}},
	{7, "very nasty rat and not very funny pet", index.StatusActual, []int{1, 2}},
	{8, "pet with rat and rat and rat", index.StatusActual, []int{1, 2}},
	{9, "nasty rat with curly hair", index.StatusActual, []int{1, 2}},
	{10, "white cat and fashionable collar", index.StatusBanned, []int{8, -3}},
	{11, "big dog sparrow eugene", index.StatusActual, []int{1, 3, 2}},
	// rejected: id already taken
	{1, "fluffy dog", index.StatusActual, []int{1}},
	// rejected: negative id
	{-1, "fluffy cat", index.StatusActual, []int{1}},
	// rejected: control character inside a word
	{12, "big dog sparr\x12ow", index.StatusActual, []int{1}},
}

func main() {
	policyFlag := flag.String("policy", "seq", "execution policy: seq or par")
	logLevel := flag.String("log-level", "info", "log level for timing output")
	flag.Parse()

	logger.SetupWriter(os.Stderr, *logLevel, "text")
	policy, err := indexer.ParsePolicy(*policyFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(os.Stdout, policy); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(out io.Writer, policy indexer.Policy) error {
	engine, err := indexer.NewFromText("and with")
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	for _, doc := range corpus {
		timed("AddDocument", func() {
			if err := engine.AddDocument(doc.id, doc.text, doc.status, doc.ratings); err != nil {
				fmt.Fprintf(out, "Error adding document %d: %v\n", doc.id, err)
			}
		})
	}

	for _, query := range []string{"curly nasty cat", "curly -nasty", "funny --pet", "big dog -"} {
		timed("FindTopDocuments", func() { findTopDocuments(out, engine, policy, query) })
	}
	timed("MatchDocuments", func() { matchDocuments(out, engine, policy, "funny curly -not") })

	fmt.Fprintln(out, "Batch results:")
	batch, err := executor.NewBatch(engine, policy).Process(context.Background(),
		[]string{"nasty rat -not", "not very funny nasty pet", "curly hair"})
	if err != nil {
		return fmt.Errorf("processing batch: %w", err)
	}
	for i, docs := range batch {
		fmt.Fprintf(out, "  query %d: %d documents\n", i, len(docs))
		for _, doc := range docs {
			fmt.Fprint(out, "    ")
			printDocument(out, doc)
		}
	}

	fmt.Fprintf(out, "Before duplicates removed: %d\n", engine.DocumentCount())
	for _, id := range dedup.RemoveDuplicates(engine) {
		fmt.Fprintf(out, "Found duplicate document id %d\n", id)
	}
	fmt.Fprintf(out, "After duplicates removed: %d\n", engine.DocumentCount())

	queue := analytics.NewRequestQueue(engine, analytics.DefaultWindow)
	for range analytics.DefaultWindow - 1 {
		if _, err := queue.AddFindRequest(policy, "empty request", nil); err != nil {
			return err
		}
	}
	for _, query := range []string{"curly dog", "big collar", "sparrow"} {
		if _, err := queue.AddFindRequest(policy, query, nil); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Total empty requests: %d\n", queue.ZeroResultCount())
	return nil
}

func timed(operation string, fn func()) {
	start := time.Now()
	fn()
	slog.Debug("operation finished", "operation", operation, "duration", time.Since(start))
}

func findTopDocuments(out io.Writer, engine *indexer.Engine, policy indexer.Policy, query string) {
	fmt.Fprintf(out, "Search results for: %s\n", query)
	docs, err := engine.FindTopDocuments(policy, query, nil)
	if err != nil {
		fmt.Fprintf(out, "Search error: %v\n", err)
		return
	}
	for _, doc := range docs {
		printDocument(out, doc)
	}
}

func matchDocuments(out io.Writer, engine *indexer.Engine, policy indexer.Policy, query string) {
	fmt.Fprintf(out, "Matching documents for: %s\n", query)
	for id := range engine.DocumentIDs() {
		words, status, err := engine.MatchDocument(policy, query, id)
		if err != nil {
			fmt.Fprintf(out, "Match error for query %s: %v\n", query, err)
			return
		}
		fmt.Fprintf(out, "{ document_id = %d, status = %s, words = %s }\n",
			id, status, strings.Join(words, " "))
	}
}

func printDocument(out io.Writer, doc ranker.Document) {
	fmt.Fprintf(out, "{ document_id = %d, relevance = %g, rating = %d }\n",
		doc.ID, doc.Relevance, doc.Rating)
}
