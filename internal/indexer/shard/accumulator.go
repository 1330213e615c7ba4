// Package shard provides a striped concurrent accumulator keyed by document
// ID. Keys hash into a fixed number of buckets, each guarded by its own
// mutex, so concurrent scoring of different documents rarely contends.
package shard

import (
	"cmp"
	"encoding/binary"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultBucketCount matches the striping the engine has always used for
// relevance accumulation.
const DefaultBucketCount = 50

type bucket struct {
	mu     sync.Mutex
	values map[int]float64
}

// Accumulator sums float64 deltas per document ID from many goroutines.
type Accumulator struct {
	buckets []bucket
}

// Entry is one drained (document, value) pair.
type Entry struct {
	DocID int
	Value float64
}

// NewAccumulator creates an accumulator with bucketCount buckets. A
// non-positive count falls back to DefaultBucketCount.
func NewAccumulator(bucketCount int) *Accumulator {
	if bucketCount <= 0 {
		bucketCount = DefaultBucketCount
	}
	a := &Accumulator{buckets: make([]bucket, bucketCount)}
	for i := range a.buckets {
		a.buckets[i].values = make(map[int]float64)
	}
	return a
}

func (a *Accumulator) bucketFor(docID int) *bucket {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uint64(docID))
	return &a.buckets[xxhash.Sum64(key[:])%uint64(len(a.buckets))]
}

// Add creates the entry for docID at zero if absent and adds delta to it.
func (a *Accumulator) Add(docID int, delta float64) {
	b := a.bucketFor(docID)
	b.mu.Lock()
	b.values[docID] += delta
	b.mu.Unlock()
}

// Erase removes docID if present.
func (a *Accumulator) Erase(docID int) {
	b := a.bucketFor(docID)
	b.mu.Lock()
	delete(b.values, docID)
	b.mu.Unlock()
}

// Len returns the number of entries across all buckets.
func (a *Accumulator) Len() int {
	a.lockAll()
	defer a.unlockAll()
	n := 0
	for i := range a.buckets {
		n += len(a.buckets[i].values)
	}
	return n
}

// Drain merges every bucket into one map. It is a terminal step: it holds
// all bucket locks at once and is not meant for the hot path.
func (a *Accumulator) Drain() map[int]float64 {
	a.lockAll()
	defer a.unlockAll()
	result := make(map[int]float64)
	for i := range a.buckets {
		for docID, value := range a.buckets[i].values {
			result[docID] = value
		}
	}
	return result
}

// DrainSorted is Drain ordered by ascending document ID.
func (a *Accumulator) DrainSorted() []Entry {
	merged := a.Drain()
	entries := make([]Entry, 0, len(merged))
	for docID, value := range merged {
		entries = append(entries, Entry{DocID: docID, Value: value})
	}
	slices.SortFunc(entries, func(x, y Entry) int {
		return cmp.Compare(x.DocID, y.DocID)
	})
	return entries
}

// lockAll acquires bucket locks in ascending index order; every multi-bucket
// operation uses the same order.
func (a *Accumulator) lockAll() {
	for i := range a.buckets {
		a.buckets[i].mu.Lock()
	}
}

func (a *Accumulator) unlockAll() {
	for i := len(a.buckets) - 1; i >= 0; i-- {
		a.buckets[i].mu.Unlock()
	}
}
