// Package validator checks document events before they are published. It
// catches malformed envelopes; word-level checks stay with the engine.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

const (
	maxTextLength = 1048576
	maxRatings    = 10000
)

// ValidationError holds per-field failure messages. It matches
// apperrors.ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func ValidateDocumentEvent(event *ingestion.DocumentEvent) error {
	errs := make(map[string]string)

	if event.ID < 0 {
		errs["id"] = "id must not be negative"
	}
	switch event.Op {
	case ingestion.OpAdd:
		if strings.TrimSpace(event.Text) == "" {
			errs["text"] = "text is required"
		} else if len(event.Text) > maxTextLength {
			errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
		}
		if len(event.Ratings) > maxRatings {
			errs["ratings"] = fmt.Sprintf("at most %d ratings are allowed", maxRatings)
		}
	case ingestion.OpRemove:
		if _, err := indexer.ParsePolicy(event.Policy); err != nil {
			errs["policy"] = "policy must be seq or par"
		}
	default:
		errs["op"] = "op must be add or remove"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
