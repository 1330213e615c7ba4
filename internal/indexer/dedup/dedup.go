// Package dedup removes documents whose vocabulary repeats that of a
// document with a smaller id.
package dedup

import (
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
)

// Store is the part of the engine the detector needs.
type Store interface {
	DocumentIDs() iter.Seq[int]
	WordFrequencies(id int) map[string]float64
	RemoveDocument(policy indexer.Policy, id int) bool
}

// RemoveDuplicates scans live documents in ascending id order and removes
// every document whose set of distinct words equals that of an earlier one.
// Word frequencies are ignored. It returns the removed ids in ascending
// order.
func RemoveDuplicates(store Store) []int {
	log := slog.Default().With("component", "dedup")

	seen := make(map[string]int)
	duplicates := make([]int, 0)
	for id := range store.DocumentIDs() {
		key := vocabularyKey(store.WordFrequencies(id))
		if original, ok := seen[key]; ok {
			duplicates = append(duplicates, id)
			log.Info("found duplicate document", "doc_id", id, "original_id", original)
			continue
		}
		seen[key] = id
	}

	for _, id := range duplicates {
		store.RemoveDocument(indexer.Sequential, id)
	}
	return duplicates
}

// vocabularyKey joins the sorted words with a space, which cannot occur
// inside a word.
func vocabularyKey(freqs map[string]float64) string {
	words := make([]string, 0, len(freqs))
	for word := range freqs {
		words = append(words, word)
	}
	slices.Sort(words)
	return strings.Join(words, " ")
}
