package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNoEmbedding is returned when the provider returns no vector for an input.
	ErrNoEmbedding = errors.New("embedding provider returned no vector")

	// ErrEmbeddingCountMismatch is returned when the provider returns a different
	// number of vectors than inputs.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrDimensionMismatch is returned when a vector has an unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
