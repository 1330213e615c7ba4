// Package merger combines per-query result lists.
package merger

import (
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
)

// Join flattens results in query order, keeping each list's relevance order.
func Join(results [][]ranker.Document) []ranker.Document {
	total := 0
	for _, docs := range results {
		total += len(docs)
	}
	joined := make([]ranker.Document, 0, total)
	for _, docs := range results {
		joined = append(joined, docs...)
	}
	return joined
}
