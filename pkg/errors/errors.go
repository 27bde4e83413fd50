// Package errors defines the error taxonomy shared by the training pipeline,
// the artifact store and the inference boundary, plus the mapping from those
// errors to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFitted is returned when a vectorizer or classifier is used before
	// it has been fitted.
	ErrNotFitted = errors.New("component not fitted")
	// ErrDimensionMismatch signals a feature vector whose length differs from
	// the trained vocabulary size.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
	// ErrArtifactNotFound is returned when no model artifact exists at a location.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrArtifactCorrupt is returned when stored artifact data cannot be fully
	// reconstructed.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
	// ErrConfiguration covers degenerate corpora and invalid training parameters.
	ErrConfiguration = errors.New("configuration error")

	ErrInvalidInput        = errors.New("invalid input")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
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

// HTTPStatusCode maps an error from any layer to the status the HTTP boundary
// should answer with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrModelUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotFitted),
		errors.Is(err, ErrDimensionMismatch),
		errors.Is(err, ErrArtifactCorrupt),
		errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
