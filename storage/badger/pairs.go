package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/storage"
)

// ctxCheckInterval is how many rows a scan reads between cancellation checks.
const ctxCheckInterval = 256

// PairRepository implements storage.PairRepository on BadgerDB.
type PairRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	// ownsBackend is set when closing the repository should close the backend.
	ownsBackend bool
}

var _ storage.PairRepository = (*PairRepository)(nil)

// NewRepository opens (or creates) a Badger database at path and returns a
// pair repository that owns it.
func NewRepository(path string) (storage.PairRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	repo, err := newPairRepository(backend, true)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repo, nil
}

// NewPairRepository creates a PairRepository on an already opened backend.
// The caller remains responsible for closing the backend.
func NewPairRepository(backend *Backend) (*PairRepository, error) {
	return newPairRepository(backend, false)
}

func newPairRepository(backend *Backend, ownsBackend bool) (*PairRepository, error) {
	idSeq, err := backend.GetSequence(pairIDSeq)
	if err != nil {
		return nil, err
	}

	return &PairRepository{
		backend:     backend,
		idSeq:       idSeq,
		ownsBackend: ownsBackend,
	}, nil
}

// Close releases the ID sequence, and the backend when the repository owns it.
func (r *PairRepository) Close() error {
	err := r.idSeq.Release()
	if r.ownsBackend {
		err = errors.Join(err, r.backend.Close())
	}
	return err
}

// Describe delegates to the backend.
func (r *PairRepository) Describe() string {
	return r.backend.Describe()
}

// Ping delegates to the backend.
func (r *PairRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// NearestPairs scans every stored pair and ranks those with a populated column.
func (r *PairRepository) NearestPairs(ctx context.Context, vector []float32, column core.Column, limit int) ([]core.RankedID, error) {
	if !column.Valid() {
		return nil, fmt.Errorf("%w: unknown column %q", storage.ErrInvalidQuery, column)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	var ranked []core.RankedID
	var mismatched int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pairRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		scanned := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			scanned++
			if scanned%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			pair, err := readPairItem(iter.Item())
			if err != nil {
				return err
			}

			stored := pair.Embedding(column)
			if stored == nil {
				continue
			}
			distance, ok := core.CosineDistance(vector, stored)
			if !ok {
				mismatched++
				continue
			}
			ranked = append(ranked, core.RankedID{Id: pair.Id, Distance: distance})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if mismatched > 0 {
		r.backend.logger.Warn("excluded rows with incomparable vectors",
			"column", column, "rows", mismatched, "query_dimensions", len(vector))
	}

	slices.SortFunc(ranked, func(a, b core.RankedID) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if ranked == nil {
		ranked = []core.RankedID{}
	}
	return ranked, nil
}

// GetPair retrieves a single pair by ID.
func (r *PairRepository) GetPair(ctx context.Context, id core.ID) (*core.TranslationPair, error) {
	var result *core.TranslationPair
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readPair(tx, makePairKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetPairs retrieves multiple pairs by their IDs, preserving the requested order.
func (r *PairRepository) GetPairs(ctx context.Context, ids ...core.ID) ([]*core.TranslationPair, error) {
	var result []*core.TranslationPair
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			pair, err := readPair(tx, makePairKey(id))
			if err != nil {
				return err
			}
			if pair != nil {
				result = append(result, pair)
			}
		}
		return nil
	}, false)
	return result, err
}

// AddPairs inserts pairs that are not already present by content hash.
func (r *PairRepository) AddPairs(ctx context.Context, pairs ...*core.TranslationPair) ([]*core.TranslationPair, error) {
	var added []*core.TranslationPair
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, pair := range pairs {
			if err := core.ValidatePair(pair); err != nil {
				return err
			}

			hashKey := makePairHashKey(pair.ContentHash())
			_, err := tx.Get(hashKey)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			pair.Id = core.ID(nextID)
			if pair.CreatedAt.IsZero() {
				pair.CreatedAt = time.Now()
			}
			// Stored timestamps have microsecond resolution.
			pair.CreatedAt = pair.CreatedAt.UTC().Truncate(time.Microsecond)

			if err := tx.Set(makePairKey(pair.Id), storage.MarshalPair(pair)); err != nil {
				return err
			}
			if err := tx.Set(hashKey, storage.MarshalID(pair.Id)); err != nil {
				return err
			}
			added = append(added, pair)
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return added, nil
}

// UpdatePairs replaces existing pairs, keeping their ids and creation times.
func (r *PairRepository) UpdatePairs(ctx context.Context, pairs ...*core.TranslationPair) ([]*core.TranslationPair, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, pair := range pairs {
			if err := core.ValidatePair(pair); err != nil {
				return err
			}
			key := makePairKey(pair.Id)

			old, err := readPair(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: pair %d", storage.ErrNotFound, pair.Id)
			}
			pair.CreatedAt = old.CreatedAt

			if err := tx.Set(key, storage.MarshalPair(pair)); err != nil {
				return err
			}

			// Keep the content hash index in step with edited texts
			oldHash, newHash := old.ContentHash(), pair.ContentHash()
			if oldHash != newHash {
				if err := tx.Delete(makePairHashKey(oldHash)); err != nil {
					return err
				}
				if err := tx.Set(makePairHashKey(newHash), storage.MarshalID(pair.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// ListPairs returns up to limit pairs with Id > afterID in ascending id order.
func (r *PairRepository) ListPairs(ctx context.Context, afterID core.ID, limit int) ([]*core.TranslationPair, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	afterID = max(afterID, 0)

	var results []*core.TranslationPair
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pairRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makePairKey(afterID + 1)); iter.Valid() && len(results) < limit; iter.Next() {
			pair, err := readPairItem(iter.Item())
			if err != nil {
				return err
			}
			results = append(results, pair)
		}
		return ctx.Err()
	}, false)
	return results, err
}

// CountPairs counts stored pairs using a key-only scan.
func (r *PairRepository) CountPairs(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pairRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if _, ok := pairIDFromKey(iter.Item().Key()); ok {
				count++
			}
		}
		return ctx.Err()
	}, false)
	return count, err
}

// readPair reads a pair by key, returning nil if it does not exist.
func readPair(tx *badger.Txn, key []byte) (*core.TranslationPair, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return readPairItem(item)
}

func readPairItem(item *badger.Item) (*core.TranslationPair, error) {
	var pair *core.TranslationPair
	err := item.Value(func(val []byte) error {
		var err error
		pair, err = storage.UnmarshalPair(val)
		return err
	})
	return pair, err
}
