package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/pairfinder/ai"
	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/storage"
)

const (
	DefaultBatchSize      = 32
	DefaultMaxAttempts    = 3
	DefaultRetryDelay     = time.Second
	DefaultReportInterval = 100
)

// Pipeline embeds and writes translation pairs.
type Pipeline struct {
	repository     storage.PairWriter
	embedder       ai.Embedder
	pool           *ants.Pool
	batchSize      int
	maxAttempts    int
	retryDelay     time.Duration
	progress       io.Writer
	reportInterval int
	writeMu        sync.Mutex
	logger         *slog.Logger
}

// Stats summarizes an Import or Reembed run.
type Stats struct {
	Total      int `json:"total"`
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type Option func(*Pipeline) error

// WithPoolSize sets the number of concurrent embedding workers.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many pairs share one embedding request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = DefaultBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts and base backoff for each embedding request.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = delay
		return nil
	}
}

// WithProgress reports progress to w every interval pairs.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		p.reportInterval = interval
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline writing to repository with provider's embedder.
// Call Release when done.
func NewPipeline(repository storage.PairWriter, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:     repository,
		embedder:       provider.Embedder(),
		pool:           pool,
		batchSize:      DefaultBatchSize,
		maxAttempts:    DefaultMaxAttempts,
		retryDelay:     DefaultRetryDelay,
		progress:       io.Discard,
		reportInterval: DefaultReportInterval,
		logger:         slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Import validates, de-duplicates, embeds and inserts pairs. Invalid pairs and
// pairs repeating earlier content are counted and skipped. Pairs already in
// the store are counted as duplicates by the repository.
func (p *Pipeline) Import(ctx context.Context, pairs []*core.TranslationPair) (*Stats, error) {
	stats := &Stats{Total: len(pairs)}

	seen := make(map[core.ContentHash]struct{}, len(pairs))
	unique := make([]*core.TranslationPair, 0, len(pairs))
	for i, pair := range pairs {
		if err := core.ValidatePair(pair); err != nil {
			p.logger.Debug("skipping invalid pair", "index", i, "err", err)
			stats.Invalid++
			continue
		}
		hash := pair.ContentHash()
		if _, dup := seen[hash]; dup {
			stats.Duplicates++
			continue
		}
		seen[hash] = struct{}{}
		unique = append(unique, pair)
	}

	fmt.Fprintf(p.progress, "Importing %d pairs (%d invalid, %d repeated, batch size %d)\n",
		len(unique), stats.Invalid, stats.Duplicates, p.batchSize)
	tracker := NewProgressTracker(p.progress, len(unique), p.reportInterval)
	tracker.Start()

	var mu sync.Mutex
	next := 0
	err := p.run(ctx, func() ([]*core.TranslationPair, error) {
		end := min(next+p.batchSize, len(unique))
		batch := unique[next:end]
		next = end
		return batch, nil
	}, func(ctx context.Context, batch []*core.TranslationPair) error {
		if err := embedPairs(ctx, p.embedder, batch, p.maxAttempts, p.retryDelay); err != nil {
			return err
		}

		p.writeMu.Lock()
		inserted, err := p.repository.AddPairs(ctx, batch...)
		p.writeMu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to insert pairs: %w", err)
		}

		mu.Lock()
		stats.Inserted += len(inserted)
		stats.Duplicates += len(batch) - len(inserted)
		mu.Unlock()
		tracker.Increment(len(batch))
		return nil
	})
	tracker.Finish()

	p.logger.Info("import finished", "total", stats.Total, "inserted", stats.Inserted,
		"duplicates", stats.Duplicates, "invalid", stats.Invalid, "elapsed", tracker.Elapsed())
	return stats, err
}

// Reembed replaces the embeddings of every stored pair with vectors from the
// configured model.
func (p *Pipeline) Reembed(ctx context.Context) (*Stats, error) {
	total, err := p.repository.CountPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pairs: %w", err)
	}
	stats := &Stats{Total: total}
	if total == 0 {
		fmt.Fprintf(p.progress, "No pairs found in store (0 pairs)\n")
		return stats, nil
	}

	fmt.Fprintf(p.progress, "Starting reembedding of %d pairs (batch size: %d)\n", total, p.batchSize)
	tracker := NewProgressTracker(p.progress, total, p.reportInterval)
	tracker.Start()

	var (
		mu      sync.Mutex
		afterID core.ID
	)
	err = p.run(ctx, func() ([]*core.TranslationPair, error) {
		page, err := p.repository.ListPairs(ctx, afterID, p.batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list pairs: %w", err)
		}
		if len(page) > 0 {
			afterID = page[len(page)-1].Id
		}
		return page, nil
	}, func(ctx context.Context, batch []*core.TranslationPair) error {
		if err := embedPairs(ctx, p.embedder, batch, p.maxAttempts, p.retryDelay); err != nil {
			return err
		}

		p.writeMu.Lock()
		updated, err := p.repository.UpdatePairs(ctx, batch...)
		p.writeMu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to update pairs: %w", err)
		}

		mu.Lock()
		stats.Updated += len(updated)
		mu.Unlock()
		tracker.Increment(len(batch))
		return nil
	})
	tracker.Finish()

	elapsed := tracker.Elapsed()
	p.logger.Info("reembed finished", "total", total, "updated", stats.Updated, "elapsed", elapsed)
	return stats, err
}

// run pulls batches from next until it returns an empty batch and processes
// each on the pool. The first failure cancels the remaining batches.
func (p *Pipeline) run(parent context.Context, next func() ([]*core.TranslationPair, error),
	process func(context.Context, []*core.TranslationPair) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for ctx.Err() == nil {
		batch, err := next()
		if err != nil {
			fail(err)
			break
		}
		if len(batch) == 0 {
			break
		}

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := process(ctx, batch); err != nil {
				p.logger.Error("batch failed", "pairs", len(batch), "err", err)
				fail(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return parent.Err()
}

// Release frees the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
