package indexer

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
)

func randomWord(r *rand.Rand, maxLen int) string {
	var sb strings.Builder
	n := 1 + r.IntN(maxLen)
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('a' + r.IntN(26)))
	}
	return sb.String()
}

func randomText(r *rand.Rand, dictionary []string, words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = dictionary[r.IntN(len(dictionary))]
	}
	return strings.Join(parts, " ")
}

// buildCorpus fills an engine with docs documents of 70 words each drawn
// from a 2000-word dictionary.
func buildCorpus(b *testing.B, docs int) (*Engine, []string) {
	b.Helper()
	r := rand.New(rand.NewPCG(1, 2))
	dictionary := make([]string, 2000)
	for i := range dictionary {
		dictionary[i] = randomWord(r, 10)
	}
	e := newEngine(b, "")
	for id := 0; id < docs; id++ {
		mustAdd(b, e, id, randomText(r, dictionary, 70), index.StatusActual, 1, 2, 3)
	}
	queries := make([]string, 100)
	for i := range queries {
		words := strings.Fields(randomText(r, dictionary, 10))
		for j := 0; j < len(words); j += 3 {
			words[j] = "-" + words[j]
		}
		queries[i] = strings.Join(words, " ")
	}
	return e, queries
}

// BenchmarkAddDocument measures per-document insert throughput.
func BenchmarkAddDocument(b *testing.B) {
	e := newEngine(b, "and with")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.AddDocument(i, "funny pet and nasty rat with curly hair and fancy collar", index.StatusActual, []int{1, 2}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFindTopDocuments compares the two execution policies over 10 000
// documents.
func BenchmarkFindTopDocuments(b *testing.B) {
	e, queries := buildCorpus(b, 10000)
	for _, policy := range policies {
		b.Run(policy.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.FindTopDocuments(policy, queries[i%len(queries)], nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMatchDocument compares matching policies against one document.
func BenchmarkMatchDocument(b *testing.B) {
	e, queries := buildCorpus(b, 1000)
	for _, policy := range policies {
		b.Run(policy.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := e.MatchDocument(policy, queries[i%len(queries)], i%1000); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkRemoveDocument removes every document of a fresh corpus.
func BenchmarkRemoveDocument(b *testing.B) {
	for _, policy := range policies {
		b.Run(policy.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				e, _ := buildCorpus(b, 500)
				b.StartTimer()
				for id := 0; id < 500; id++ {
					e.RemoveDocument(policy, id)
				}
			}
		})
	}
}

// BenchmarkFindTopDocumentsConcurrent measures read throughput with many
// callers sharing one engine.
func BenchmarkFindTopDocumentsConcurrent(b *testing.B) {
	e, queries := buildCorpus(b, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := e.FindTopDocuments(Sequential, queries[i%len(queries)], nil); err != nil {
				b.Fatal(fmt.Errorf("query %d: %w", i, err))
			}
			i++
		}
	})
}
