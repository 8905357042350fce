package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/storage"
)

// Ranker orders corpus rows by cosine distance to a query vector.
type Ranker struct {
	reader storage.PairReader
}

// NewRanker creates a ranker over reader.
func NewRanker(reader storage.PairReader) (*Ranker, error) {
	if reader == nil {
		return nil, ErrRepositoryRequired
	}
	return &Ranker{reader: reader}, nil
}

// Rank returns at most topK (id, distance) entries for rows whose column is
// populated, by ascending distance with ties broken by ascending id.
// An empty corpus yields an empty, non-nil slice.
func (r *Ranker) Rank(ctx context.Context, vector []float32, column core.Column, topK int) ([]core.RankedID, error) {
	if err := core.ValidateTopK(topK); err != nil {
		return nil, err
	}
	if !column.Valid() {
		return nil, fmt.Errorf("%w: unknown embedding column %q", core.ErrInvalidInput, column)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", core.ErrInvalidInput)
	}

	ranked, err := r.reader.NearestPairs(ctx, vector, column, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: rank %s: %w", core.ErrStoreUnavailable, column, err)
	}

	// Ascending distance, then ascending id.
	slices.SortStableFunc(ranked, compareRanked)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	if ranked == nil {
		ranked = []core.RankedID{}
	}
	return ranked, nil
}

func compareRanked(a, b core.RankedID) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.Id, b.Id)
}
