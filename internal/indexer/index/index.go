// Package index holds the document store: per-document records, the forward
// index (document → term → frequency), its transpose the inverted index
// (term → document → frequency), and the ordered set of live document IDs.
//
// Both index directions are only ever written together by Insert, Remove,
// Detach/EraseTerm/Compact, so a (term, document) pair is present in one
// direction exactly when it is present in the other. An Index is not safe for
// concurrent mutation; the engine serialises writers. EraseTerm is the single
// exception and may run concurrently for distinct terms.
package index

import (
	"maps"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

type Index struct {
	records  map[int]Record
	forward  map[int]map[string]float64
	inverted map[string]map[int]float64
	live     *roaring64.Bitmap
}

func New() *Index {
	return &Index{
		records:  make(map[int]Record),
		forward:  make(map[int]map[string]float64),
		inverted: make(map[string]map[int]float64),
		live:     roaring64.New(),
	}
}

// Insert stores record and indexes its term frequencies in both directions.
// The caller must have checked that record.ID is not live.
func (x *Index) Insert(record Record, freqs map[string]float64) {
	forward := make(map[string]float64, len(freqs))
	for term, tf := range freqs {
		forward[term] = tf
		postings, ok := x.inverted[term]
		if !ok {
			postings = make(map[int]float64)
			x.inverted[term] = postings
		}
		postings[record.ID] = tf
	}
	x.forward[record.ID] = forward
	x.records[record.ID] = record
	x.live.Add(uint64(record.ID))
}

// Remove purges id from every structure, erasing each of its inverted
// postings while walking its forward entry. It reports whether id was live.
func (x *Index) Remove(id int) bool {
	forward, ok := x.forward[id]
	if !ok {
		return false
	}
	for term := range forward {
		x.erase(term, id)
	}
	delete(x.forward, id)
	delete(x.records, id)
	x.live.Remove(uint64(id))
	return true
}

// Detach is the first half of a concurrent removal: it deletes the record,
// forward entry and live membership of id and returns an owned snapshot of
// the terms whose inverted postings still reference id. The caller must
// EraseTerm every returned term and then Compact them. ok is false when id
// was not live.
func (x *Index) Detach(id int) (terms []string, ok bool) {
	forward, ok := x.forward[id]
	if !ok {
		return nil, false
	}
	terms = make([]string, 0, len(forward))
	for term := range forward {
		terms = append(terms, term)
	}
	delete(x.forward, id)
	delete(x.records, id)
	x.live.Remove(uint64(id))
	return terms, true
}

// EraseTerm deletes the (term, id) posting. Calls for distinct terms touch
// distinct posting maps and never write the outer term map, so they may run
// concurrently with each other.
func (x *Index) EraseTerm(term string, id int) {
	if postings, ok := x.inverted[term]; ok {
		delete(postings, id)
	}
}

// Compact drops the inverted entries of terms left without postings.
func (x *Index) Compact(terms []string) {
	for _, term := range terms {
		if postings, ok := x.inverted[term]; ok && len(postings) == 0 {
			delete(x.inverted, term)
		}
	}
}

func (x *Index) erase(term string, id int) {
	postings, ok := x.inverted[term]
	if !ok {
		return
	}
	delete(postings, id)
	if len(postings) == 0 {
		delete(x.inverted, term)
	}
}

// Postings returns the live document → frequency map for term. The map is
// owned by the index and must not be modified.
func (x *Index) Postings(term string) (map[int]float64, bool) {
	postings, ok := x.inverted[term]
	return postings, ok
}

// HasTerm reports whether id's forward entry contains term.
func (x *Index) HasTerm(id int, term string) bool {
	_, ok := x.forward[id][term]
	return ok
}

// Frequencies returns a copy of id's forward entry, empty when id is not
// live.
func (x *Index) Frequencies(id int) map[string]float64 {
	forward, ok := x.forward[id]
	if !ok {
		return map[string]float64{}
	}
	return maps.Clone(forward)
}

func (x *Index) Record(id int) (Record, bool) {
	record, ok := x.records[id]
	return record, ok
}

func (x *Index) Contains(id int) bool {
	return id >= 0 && x.live.Contains(uint64(id))
}

func (x *Index) Count() int {
	return len(x.records)
}

// TermCount returns the number of distinct terms in the inverted index.
func (x *Index) TermCount() int {
	return len(x.inverted)
}

// IDs returns the live document IDs in ascending order.
func (x *Index) IDs() []int {
	raw := x.live.ToArray()
	ids := make([]int, len(raw))
	for i, id := range raw {
		ids[i] = int(id)
	}
	return ids
}
