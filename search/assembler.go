package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/storage"
)

// Assembler turns a ranking into full records.
type Assembler struct {
	reader storage.PairReader
}

// NewAssembler creates an assembler over reader.
func NewAssembler(reader storage.PairReader) (*Assembler, error) {
	if reader == nil {
		return nil, ErrRepositoryRequired
	}
	return &Assembler{reader: reader}, nil
}

// Assemble fetches the ranked pairs in rank order, truncated to topK.
// Ids that vanished between ranking and fetch are dropped.
func (a *Assembler) Assemble(ctx context.Context, ranked []core.RankedID, topK int) ([]*core.ScoredPair, error) {
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	if len(ranked) == 0 {
		return []*core.ScoredPair{}, nil
	}

	ids := make([]core.ID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Id
	}
	pairs, err := a.reader.GetPairs(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %d pairs: %w", core.ErrStoreUnavailable, len(ids), err)
	}

	byID := make(map[core.ID]*core.TranslationPair, len(pairs))
	for _, p := range pairs {
		byID[p.Id] = p
	}

	scored := make([]*core.ScoredPair, 0, len(ranked))
	for _, r := range ranked {
		pair, ok := byID[r.Id]
		if !ok {
			continue
		}
		scored = append(scored, &core.ScoredPair{
			Pair:     pair,
			Distance: r.Distance,
			Score:    1 - r.Distance,
		})
	}
	return scored, nil
}

// GetByID looks up a single pair.
func (a *Assembler) GetByID(ctx context.Context, id core.ID) (*core.TranslationPair, error) {
	if err := core.ValidatePairID(id); err != nil {
		return nil, err
	}
	pair, err := a.reader.GetPair(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: translation pair with ID %d not found", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get pair %d: %w", core.ErrStoreUnavailable, id, err)
	}
	return pair, nil
}
