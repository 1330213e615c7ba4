package index

import (
	"fmt"
	"strings"
)

// Status is a caller-supplied tag on each document. The engine only uses it
// as a filter value.
type Status int

const (
	StatusActual Status = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusActual:
		return "ACTUAL"
	case StatusIrrelevant:
		return "IRRELEVANT"
	case StatusBanned:
		return "BANNED"
	case StatusRemoved:
		return "REMOVED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus accepts the String form in any case. An empty string is
// StatusActual.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ACTUAL":
		return StatusActual, nil
	case "IRRELEVANT":
		return StatusIrrelevant, nil
	case "BANNED":
		return StatusBanned, nil
	case "REMOVED":
		return StatusRemoved, nil
	default:
		return 0, fmt.Errorf("unknown document status %q", s)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Record is the immutable metadata kept for a live document.
type Record struct {
	ID     int
	Rating int
	Status Status
	Text   string
}

// AverageRating is the integer mean of ratings truncated toward zero, or 0
// for no ratings.
func AverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}

// TermFrequencies maps each distinct word to its share of words. The
// shares sum to 1 for a non-empty input.
func TermFrequencies(words []string) map[string]float64 {
	freqs := make(map[string]float64, len(words))
	if len(words) == 0 {
		return freqs
	}
	inv := 1.0 / float64(len(words))
	for _, word := range words {
		freqs[word] += inv
	}
	return freqs
}
