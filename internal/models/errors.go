package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks client input problems: blank query, non-positive ID,
	// malformed cursor and the like. Callers map it to a 400.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a missing entity, distinct from an empty result.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingUnavailable is returned where an embedding is mandatory (topic creation).
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)

// InvalidInputf returns an error wrapping ErrInvalidInput with a formatted detail.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFoundf returns an error wrapping ErrNotFound with a formatted detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
