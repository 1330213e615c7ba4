// Package errors defines the sentinel errors shared by the search engine and
// its service surfaces, plus an AppError wrapper that carries an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidWord      = errors.New("invalid word")
	ErrInvalidStopWord  = fmt.Errorf("invalid stop word: %w", ErrInvalidWord)
	ErrInvalidQuery     = errors.New("invalid query")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the status the HTTP layer should answer
// with. An AppError's own status wins over the sentinel mapping.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidDocument),
		errors.Is(err, ErrInvalidWord),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsInvalidInput reports whether err was caused by rejected caller input
// rather than an engine failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrInvalidWord) ||
		errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidInput)
}
