package tokenizer

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

func TestSplitIntoWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "white cat and fluffy tail", []string{"white", "cat", "and", "fluffy", "tail"}},
		{"runs of spaces", "  fluffy   dog ", []string{"fluffy", "dog"}},
		{"empty", "", []string{}},
		{"only spaces", "    ", []string{}},
		{"tab is not a separator", "a\tb c", []string{"a\tb", "c"}},
		{"minus words kept intact", "cat -dog", []string{"cat", "-dog"}},
		{"unicode", "пушистый кот", []string{"пушистый", "кот"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitIntoWords(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitIntoWords(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsValidWord(t *testing.T) {
	tests := map[string]bool{
		"cat":      true,
		"пушистый": true,
		"a-b":      true,
		"a\x01b":   false,
		"\x00":     false,
		"tab\t":    false,
		"\x1f":     false,
		" ":        true,
	}
	for word, want := range tests {
		if got := IsValidWord(word); got != want {
			t.Errorf("IsValidWord(%q) = %v, want %v", word, got, want)
		}
	}
}

func TestNewStopWords(t *testing.T) {
	sw, err := NewStopWords([]string{"and", "", "in", "and"})
	if err != nil {
		t.Fatalf("NewStopWords failed: %v", err)
	}
	if sw.Len() != 2 {
		t.Errorf("expected 2 unique stop words, got %d", sw.Len())
	}
	if !sw.Contains("and") || !sw.Contains("in") {
		t.Errorf("expected and/in to be stop words")
	}
	if sw.Contains("") {
		t.Errorf("empty string must never be a stop word")
	}
	if got := sw.Words(); !reflect.DeepEqual(got, []string{"and", "in"}) {
		t.Errorf("Words() = %v", got)
	}
}

func TestNewStopWordsInvalid(t *testing.T) {
	_, err := NewStopWords([]string{"and", "i\x02n"})
	if !errors.Is(err, apperrors.ErrInvalidStopWord) {
		t.Fatalf("expected ErrInvalidStopWord, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrInvalidWord) {
		t.Errorf("stop word error should also match ErrInvalidWord")
	}
}

func TestParseStopWords(t *testing.T) {
	sw, err := ParseStopWords("  and in on ")
	if err != nil {
		t.Fatalf("ParseStopWords failed: %v", err)
	}
	if sw.Len() != 3 {
		t.Errorf("expected 3 stop words, got %d", sw.Len())
	}
}

func TestZeroStopWords(t *testing.T) {
	var sw StopWords
	if sw.Contains("and") || sw.Len() != 0 {
		t.Errorf("zero value must be an empty set")
	}
}
