package ai

import "errors"

var (
	// ErrInvalidMaxAttempts indicates that maxAttempts is invalid (must be > 0).
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrDimensionMismatch indicates the service returned a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyResponse indicates the service returned no vectors.
	ErrEmptyResponse = errors.New("empty embedding response")
)
