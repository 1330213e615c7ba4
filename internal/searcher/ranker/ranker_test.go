package ranker

import (
	"math"
	"reflect"
	"testing"
)

func TestIDF(t *testing.T) {
	if got := IDF(4, 1); math.Abs(got-math.Log(4)) > 1e-12 {
		t.Errorf("IDF(4, 1) = %v, want ln 4", got)
	}
	if got := IDF(3, 3); got != 0 {
		t.Errorf("term in every document should have idf 0, got %v", got)
	}
	if got := IDF(0, 0); got != 0 {
		t.Errorf("empty corpus should have idf 0, got %v", got)
	}
}

func TestSortByRelevance(t *testing.T) {
	docs := []Document{
		{ID: 1, Relevance: 0.1, Rating: 9},
		{ID: 2, Relevance: 0.9, Rating: 1},
		{ID: 3, Relevance: 0.5, Rating: 5},
	}
	Sort(docs)
	want := []int{2, 3, 1}
	for i, d := range docs {
		if d.ID != want[i] {
			t.Errorf("position %d: got doc %d, want %d", i, d.ID, want[i])
		}
	}
}

func TestSortNearTieUsesRating(t *testing.T) {
	docs := []Document{
		{ID: 1, Relevance: 0.5, Rating: 1},
		{ID: 2, Relevance: 0.5 + 1e-7, Rating: 7},
		{ID: 3, Relevance: 0.5 - 1e-7, Rating: 4},
		{ID: 4, Relevance: 0.5, Rating: 4},
	}
	Sort(docs)
	want := []int{2, 3, 4, 1}
	for i, d := range docs {
		if d.ID != want[i] {
			t.Errorf("position %d: got doc %d, want %d", i, d.ID, want[i])
		}
	}
}

func TestSortChainedNearTiesIsDeterministic(t *testing.T) {
	docs := []Document{
		{ID: 0, Relevance: 1.0, Rating: 1},
		{ID: 1, Relevance: 1.0 - 0.6e-6, Rating: 2},
		{ID: 2, Relevance: 1.0 - 1.2e-6, Rating: 3},
		{ID: 3, Relevance: 0.5, Rating: 9},
	}
	want := []int{1, 0, 2, 3}

	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}, {1, 3, 0, 2}}
	for _, order := range orders {
		in := make([]Document, 0, len(order))
		for _, i := range order {
			in = append(in, docs[i])
		}
		Sort(in)
		got := make([]int, len(in))
		for i, d := range in {
			got[i] = d.ID
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("input order %v: got %v, want %v", order, got, want)
		}
	}
}

func TestTop(t *testing.T) {
	docs := make([]Document, 0, 8)
	for i := 0; i < 8; i++ {
		docs = append(docs, Document{ID: i, Relevance: float64(i)})
	}
	top := Top(docs, 0)
	if len(top) != MaxResults {
		t.Fatalf("expected %d results, got %d", MaxResults, len(top))
	}
	if top[0].ID != 7 || top[4].ID != 3 {
		t.Errorf("unexpected order: %+v", top)
	}
	if got := Top(docs[:2], 3); len(got) != 2 {
		t.Errorf("short input should not be padded, got %d", len(got))
	}
	if got := Top(nil, 5); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
}
