package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

func stopWords(t *testing.T, words ...string) tokenizer.StopWords {
	t.Helper()
	s, err := tokenizer.NewStopWords(words)
	if err != nil {
		t.Fatalf("building stop words: %v", err)
	}
	return s
}

func TestParse(t *testing.T) {
	stop := stopWords(t, "and", "in")
	tests := []struct {
		name      string
		query     string
		normalize bool
		plus      []string
		minus     []string
	}{
		{
			name:  "plus and minus",
			query: "fluffy -dog",
			plus:  []string{"fluffy"},
			minus: []string{"dog"},
		},
		{
			name:  "stop words dropped from both sets",
			query: "cat and -in -tail",
			plus:  []string{"cat"},
			minus: []string{"tail"},
		},
		{
			name:  "order kept without normalize",
			query: "zebra cat zebra",
			plus:  []string{"zebra", "cat", "zebra"},
			minus: []string{},
		},
		{
			name:      "normalize sorts and dedups each set",
			query:     "zebra -b cat zebra -a -b",
			normalize: true,
			plus:      []string{"cat", "zebra"},
			minus:     []string{"a", "b"},
		},
		{
			name:  "repeated spaces",
			query: "  cat   dog ",
			plus:  []string{"cat", "dog"},
			minus: []string{},
		},
		{
			name:  "empty query",
			query: "",
			plus:  []string{},
			minus: []string{},
		},
		{
			name:  "inner dash is part of the word",
			query: "well-known -x-ray",
			plus:  []string{"well-known"},
			minus: []string{"x-ray"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query, stop, tt.normalize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(q.PlusWords, tt.plus) {
				t.Errorf("plus words = %q, want %q", q.PlusWords, tt.plus)
			}
			if !reflect.DeepEqual(q.MinusWords, tt.minus) {
				t.Errorf("minus words = %q, want %q", q.MinusWords, tt.minus)
			}
			if q.Raw != tt.query {
				t.Errorf("raw = %q, want %q", q.Raw, tt.query)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, query := range []string{
		"cat -",
		"--dog",
		"cat ---",
		"ca\x01t",
		"-do\tg",
		"cat\ndog",
	} {
		t.Run(query, func(t *testing.T) {
			_, err := Parse(query, tokenizer.StopWords{}, true)
			if !errors.Is(err, apperrors.ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
			if apperrors.HTTPStatusCode(err) != 400 {
				t.Errorf("expected status 400, got %d", apperrors.HTTPStatusCode(err))
			}
		})
	}
}

func TestQueryEmpty(t *testing.T) {
	q, err := Parse("and -dog", stopWords(t, "and"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Empty() {
		t.Errorf("query with only stop and minus words should be empty")
	}
}
