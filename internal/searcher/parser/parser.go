// Package parser turns raw query text into plus and minus word sets.
package parser

import (
	"net/http"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// Query is a parsed query. A document matches when it contains at least one
// plus word and none of the minus words.
type Query struct {
	PlusWords  []string
	MinusWords []string
	Raw        string
}

// Empty reports whether the query has no plus words, in which case no
// document can match.
func (q *Query) Empty() bool {
	return len(q.PlusWords) == 0
}

// Parse splits text into words, strips the leading '-' of minus words and
// drops stop words from both sets. When normalize is set, each set is sorted
// and deduplicated on its own.
func Parse(text string, stopWords tokenizer.StopWords, normalize bool) (*Query, error) {
	q := &Query{
		PlusWords:  make([]string, 0),
		MinusWords: make([]string, 0),
		Raw:        text,
	}
	for _, word := range tokenizer.SplitIntoWords(text) {
		minus := false
		if strings.HasPrefix(word, "-") {
			minus = true
			word = word[1:]
			if word == "" {
				return nil, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest,
					"query contains a lone '-'")
			}
			if word[0] == '-' {
				return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest,
					"query word %q starts with '--'", "-"+word)
			}
		}
		if !tokenizer.IsValidWord(word) {
			return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest,
				"query word %q contains a control character", word)
		}
		if stopWords.Contains(word) {
			continue
		}
		if minus {
			q.MinusWords = append(q.MinusWords, word)
		} else {
			q.PlusWords = append(q.PlusWords, word)
		}
	}
	if normalize {
		q.PlusWords = sortUnique(q.PlusWords)
		q.MinusWords = sortUnique(q.MinusWords)
	}
	return q, nil
}

func sortUnique(words []string) []string {
	slices.Sort(words)
	return slices.Compact(words)
}
