package indexer

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
)

// Policy selects how an engine operation schedules its work.
type Policy int

const (
	// Sequential runs on the calling goroutine and is deterministic.
	Sequential Policy = iota
	// Parallel fans work out over an errgroup bounded by GOMAXPROCS and
	// joins before returning.
	Parallel
)

func (p Policy) String() string {
	switch p {
	case Sequential:
		return "seq"
	case Parallel:
		return "par"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "seq", "sequential", "par" and "parallel" in any case.
// The empty string is Sequential.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "seq", "sequential":
		return Sequential, nil
	case "par", "parallel":
		return Parallel, nil
	default:
		return Sequential, fmt.Errorf("unknown execution policy %q", s)
	}
}

// Predicate filters documents during scoring.
type Predicate func(id int, status index.Status, rating int) bool

// StatusIs keeps only documents with exactly the given status.
func StatusIs(status index.Status) Predicate {
	return func(_ int, s index.Status, _ int) bool {
		return s == status
	}
}
