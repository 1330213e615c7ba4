// Package tokenizer splits document and query text into words and holds the
// engine's stop-word set. Words are case-sensitive and unstemmed; the only
// normalisation is dropping stop words.
package tokenizer

import (
	"net/http"
	"slices"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// SplitIntoWords splits text on the space character, skipping runs of
// spaces. Tabs, newlines and other bytes below 0x20 stay inside words so
// IsValidWord can reject them.
func SplitIntoWords(text string) []string {
	words := make([]string, 0, strings.Count(text, " ")+1)
	for word := range strings.SplitSeq(text, " ") {
		if word != "" {
			words = append(words, word)
		}
	}
	return words
}

// IsValidWord reports whether word is free of ASCII control characters.
func IsValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < ' ' {
			return false
		}
	}
	return true
}

// StopWords is an immutable set fixed when the engine is built. The zero
// value is an empty set.
type StopWords struct {
	set map[string]struct{}
}

// NewStopWords builds the set from words, ignoring empty strings and
// duplicates.
func NewStopWords(words []string) (StopWords, error) {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		if !IsValidWord(word) {
			return StopWords{}, apperrors.Newf(apperrors.ErrInvalidStopWord, http.StatusBadRequest,
				"stop word %q contains a control character", word)
		}
		set[word] = struct{}{}
	}
	return StopWords{set: set}, nil
}

// ParseStopWords builds the set from a space-delimited string.
func ParseStopWords(text string) (StopWords, error) {
	return NewStopWords(SplitIntoWords(text))
}

func (s StopWords) Contains(word string) bool {
	_, ok := s.set[word]
	return ok
}

func (s StopWords) Len() int {
	return len(s.set)
}

// Words returns the stop words in ascending order.
func (s StopWords) Words() []string {
	words := make([]string, 0, len(s.set))
	for word := range s.set {
		words = append(words, word)
	}
	slices.Sort(words)
	return words
}
