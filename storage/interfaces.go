package storage

import (
	"context"

	"github.com/poiesic/pairfinder/core"
)

// PairReader provides the read side of the corpus used by the search pipeline.
type PairReader interface {
	// NearestPairs ranks every pair whose column is populated by cosine distance
	// to vector and returns at most limit entries. Results are ordered by
	// ascending distance, ties broken by ascending id. Rows whose stored vector
	// has a different dimension than vector are excluded.
	// An empty corpus yields an empty slice and no error.
	NearestPairs(ctx context.Context, vector []float32, column core.Column, limit int) ([]core.RankedID, error)

	// GetPair retrieves a single pair by ID.
	// Returns ErrNotFound if the pair doesn't exist.
	GetPair(ctx context.Context, id core.ID) (*core.TranslationPair, error)

	// GetPairs retrieves multiple pairs by their IDs, in the order given.
	// Returns only the pairs that exist (no error for missing pairs).
	GetPairs(ctx context.Context, ids ...core.ID) ([]*core.TranslationPair, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// PairWriter provides corpus maintenance operations used by import and re-embedding.
type PairWriter interface {
	// AddPairs inserts pairs, assigning IDs and CreatedAt.
	// Pairs whose content hash already exists in the store are skipped.
	// Returns only the pairs that were inserted.
	AddPairs(ctx context.Context, pairs ...*core.TranslationPair) ([]*core.TranslationPair, error)

	// UpdatePairs replaces the mutable fields of existing pairs.
	// Id and CreatedAt are preserved.
	// Returns ErrNotFound if any pair doesn't exist.
	UpdatePairs(ctx context.Context, pairs ...*core.TranslationPair) ([]*core.TranslationPair, error)

	// ListPairs returns up to limit pairs with Id > afterID in ascending id order.
	ListPairs(ctx context.Context, afterID core.ID, limit int) ([]*core.TranslationPair, error)

	// CountPairs returns the number of stored pairs.
	CountPairs(ctx context.Context) (int, error)
}

// PairRepository is the full corpus store.
type PairRepository interface {
	PairReader
	PairWriter

	// Describe returns a human-readable description of the backend with
	// credentials removed.
	Describe() string

	// Close closes the storage backend and releases resources.
	Close() error
}
