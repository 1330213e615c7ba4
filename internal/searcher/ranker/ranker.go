package ranker

import (
	"cmp"
	"math"
	"slices"
)

const (
	// RelevanceEpsilon is the distance under which two relevances are
	// treated as equal and rating decides the order.
	RelevanceEpsilon = 1e-6
	MaxResults       = 5
)

type Document struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// IDF returns ln(totalDocs / docFreq), or 0 when either count is zero.
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs <= 0 || docFreq <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Compare orders a before b when a is more relevant, or, within
// RelevanceEpsilon, better rated. Remaining ties fall back to ascending ID so
// the order is stable across runs.
//
// The epsilon band makes Compare intransitive once three or more relevances
// chain within RelevanceEpsilon of each other, so Sort does not hand it to
// slices.SortFunc directly.
func Compare(a, b Document) int {
	if math.Abs(a.Relevance-b.Relevance) < RelevanceEpsilon {
		return byRating(a, b)
	}
	return cmp.Compare(b.Relevance, a.Relevance)
}

func byRating(a, b Document) int {
	return cmp.Or(cmp.Compare(b.Rating, a.Rating), cmp.Compare(a.ID, b.ID))
}

// Sort orders docs by descending relevance, then groups them into bands:
// a band starts at its most relevant document and takes every following
// document less than RelevanceEpsilon below it. Each band is then ordered
// by rating. Every pair inside a band agrees with Compare, and the result
// does not depend on the input order.
func Sort(docs []Document) {
	slices.SortFunc(docs, func(a, b Document) int {
		return cmp.Or(cmp.Compare(b.Relevance, a.Relevance), byRating(a, b))
	})
	for start := 0; start < len(docs); {
		end := start + 1
		for end < len(docs) && docs[start].Relevance-docs[end].Relevance < RelevanceEpsilon {
			end++
		}
		slices.SortFunc(docs[start:end], byRating)
		start = end
	}
}

// Top sorts docs and truncates them to limit entries. A non-positive limit
// means MaxResults.
func Top(docs []Document, limit int) []Document {
	if limit <= 0 {
		limit = MaxResults
	}
	Sort(docs)
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
