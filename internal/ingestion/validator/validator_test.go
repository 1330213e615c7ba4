package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

func TestValidateDocumentEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  ingestion.DocumentEvent
		fields []string
	}{
		{"valid add", ingestion.DocumentEvent{Op: ingestion.OpAdd, ID: 1, Text: "fluffy cat", Ratings: []int{1}}, nil},
		{"valid remove", ingestion.DocumentEvent{Op: ingestion.OpRemove, ID: 1, Policy: "par"}, nil},
		{"remove default policy", ingestion.DocumentEvent{Op: ingestion.OpRemove, ID: 0}, nil},
		{"negative id", ingestion.DocumentEvent{Op: ingestion.OpAdd, ID: -1, Text: "x"}, []string{"id"}},
		{"empty text", ingestion.DocumentEvent{Op: ingestion.OpAdd, ID: 2, Text: "   "}, []string{"text"}},
		{"text too long", ingestion.DocumentEvent{Op: ingestion.OpAdd, ID: 2, Text: strings.Repeat("a", maxTextLength+1)}, []string{"text"}},
		{"bad policy", ingestion.DocumentEvent{Op: ingestion.OpRemove, ID: 2, Policy: "async"}, []string{"policy"}},
		{"unknown op", ingestion.DocumentEvent{Op: "update", ID: -3}, []string{"id", "op"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentEvent(&tt.event)
			if len(tt.fields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := verr.Fields[f]; !ok {
					t.Errorf("missing field %q in %v", f, verr.Fields)
				}
			}
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Error("validation errors should match ErrInvalidInput")
			}
		})
	}
}
