package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pairfinder/ai/mock"
	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/storage"
	"github.com/poiesic/pairfinder/storage/badger"
)

func newTestRepo(t *testing.T) storage.PairRepository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestPipeline(t *testing.T, repo storage.PairWriter, embedder *mock.MockEmbedder, opts ...Option) *Pipeline {
	t.Helper()
	base := []Option{WithPoolSize(3), WithBatchSize(2), WithRetry(1, time.Millisecond)}
	p, err := NewPipeline(repo, mock.NewMockProviderWithEmbedder(embedder), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func samplePairs() []*core.TranslationPair {
	return []*core.TranslationPair{
		{GLNumber: "1001", EnglishText: "Cash on hand", ChineseText: "库存现金"},
		{GLNumber: "1002", EnglishText: "Bank deposits", ChineseText: "银行存款"},
		{GLNumber: "1122", EnglishText: "Accounts receivable", ChineseText: "应收账款"},
		{GLNumber: "2202", EnglishText: "Accounts payable"},
		{GLNumber: "6601", ChineseText: "销售费用"},
	}
}

func TestNewPipeline(t *testing.T) {
	repo := newTestRepo(t)

	_, err := NewPipeline(nil, mock.NewMockProvider())
	assert.Equal(t, ErrRepositoryRequired, err)

	_, err = NewPipeline(repo, nil)
	assert.Equal(t, ErrAIProviderRequired, err)

	_, err = NewPipeline(repo, mock.NewMockProvider(), WithRetry(0, time.Second))
	assert.Error(t, err)

	p, err := NewPipeline(repo, mock.NewMockProvider(), WithLogger(nil), WithBatchSize(0))
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, DefaultBatchSize, p.batchSize)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	embedder := mock.NewMockEmbedder()
	var progress bytes.Buffer
	p := newTestPipeline(t, repo, embedder, WithProgress(&progress, 1))

	stats, err := p.Import(ctx, samplePairs())
	require.NoError(t, err)
	assert.Equal(t, &Stats{Total: 5, Inserted: 5}, stats)
	assert.Contains(t, progress.String(), "5/5")

	count, err := repo.CountPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	stored, err := repo.ListPairs(ctx, 0, 10)
	require.NoError(t, err)
	byGL := make(map[string]*core.TranslationPair)
	for _, pair := range stored {
		byGL[pair.GLNumber] = pair
	}

	cash := byGL["1001"]
	require.NotNil(t, cash)
	assert.Equal(t, mock.DeterministicVector("Cash on hand", embedder.Dimensions()), cash.EnglishEmbedding)
	assert.Equal(t, mock.DeterministicVector("库存现金", embedder.Dimensions()), cash.ChineseEmbedding)

	assert.NotNil(t, byGL["2202"].EnglishEmbedding)
	assert.Nil(t, byGL["2202"].ChineseEmbedding, "empty text gets no embedding")
	assert.Nil(t, byGL["6601"].EnglishEmbedding)
	assert.NotNil(t, byGL["6601"].ChineseEmbedding)
}

func TestImport_SkipsDuplicatesAndInvalid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := newTestPipeline(t, repo, mock.NewMockEmbedder())

	_, err := p.Import(ctx, samplePairs()[:2])
	require.NoError(t, err)

	input := append(samplePairs(),
		&core.TranslationPair{GLNumber: "x"},
		&core.TranslationPair{EnglishText: "Cash on hand", ChineseText: "库存现金"},
	)
	stats, err := p.Import(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 1, stats.Invalid)
	assert.Equal(t, 3, stats.Duplicates, "two already stored, one repeated in input")
	assert.Equal(t, 3, stats.Inserted)

	count, err := repo.CountPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestImport_EmbeddingFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	embedder := mock.NewMockEmbedder()
	var calls atomic.Int32
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		calls.Add(1)
		return nil, fmt.Errorf("%w: endpoint down", core.ErrEmbeddingUnavailable)
	}
	p := newTestPipeline(t, repo, embedder, WithPoolSize(1), WithBatchSize(10), WithRetry(3, time.Millisecond))

	_, err := p.Import(ctx, samplePairs())
	assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)
	assert.EqualValues(t, 3, calls.Load(), "retried up to the configured attempts")

	count, err := repo.CountPairs(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImport_RetryRecovers(t *testing.T) {
	repo := newTestRepo(t)
	embedder := mock.NewMockEmbedder()
	var calls atomic.Int32
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 4)
		}
		return out, nil
	}
	p := newTestPipeline(t, repo, embedder, WithPoolSize(1), WithBatchSize(10), WithRetry(2, time.Millisecond))

	stats, err := p.Import(context.Background(), samplePairs())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Inserted)
}

func TestImport_BlankTextIsNotEmbedded(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	embedder := mock.NewMockEmbedder()
	var calls atomic.Int32
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			if strings.TrimSpace(text) == "" {
				return nil, fmt.Errorf("%w: text %d is empty", core.ErrInvalidInput, i)
			}
			out[i] = mock.DeterministicVector(text, 4)
		}
		return out, nil
	}
	p := newTestPipeline(t, repo, embedder, WithPoolSize(1), WithBatchSize(10), WithRetry(3, time.Millisecond))

	stats, err := p.Import(ctx, []*core.TranslationPair{
		{GLNumber: "6001", EnglishText: " ", ChineseText: "收入"},
		{GLNumber: "6002", EnglishText: "Cost of sales", ChineseText: "\t"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Inserted)
	assert.EqualValues(t, 1, calls.Load())

	pairs, err := repo.ListPairs(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	for _, pair := range pairs {
		switch pair.GLNumber {
		case "6001":
			assert.Nil(t, pair.EnglishEmbedding)
			assert.NotNil(t, pair.ChineseEmbedding)
		case "6002":
			assert.NotNil(t, pair.EnglishEmbedding)
			assert.Nil(t, pair.ChineseEmbedding)
		}
	}
}

func TestImport_InvalidInputIsNotRetried(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	var calls atomic.Int32
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		calls.Add(1)
		return nil, fmt.Errorf("%w: rejected", core.ErrInvalidInput)
	}
	p := newTestPipeline(t, newTestRepo(t), embedder, WithPoolSize(1), WithBatchSize(10), WithRetry(3, time.Millisecond))

	_, err := p.Import(context.Background(), samplePairs())
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.EqualValues(t, 1, calls.Load())
}

func TestImport_CountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	p := newTestPipeline(t, newTestRepo(t), embedder)

	_, err := p.Import(context.Background(), samplePairs())
	assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)
}

func TestImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(t, newTestRepo(t), mock.NewMockEmbedder())

	_, err := p.Import(ctx, samplePairs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReembed(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := newTestPipeline(t, repo, mock.NewMockEmbedder())

	_, err := p.Import(ctx, samplePairs())
	require.NoError(t, err)
	before, err := repo.ListPairs(ctx, 0, 10)
	require.NoError(t, err)

	// A different model produces different vectors.
	newModel := mock.NewMockEmbedder()
	newModel.Dims = 4
	p2 := newTestPipeline(t, repo, newModel)

	stats, err := p2.Reembed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.Updated)

	after, err := repo.ListPairs(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range after {
		assert.Equal(t, before[i].Id, after[i].Id)
		assert.Equal(t, before[i].CreatedAt, after[i].CreatedAt)
		if after[i].EnglishText != "" {
			assert.Len(t, after[i].EnglishEmbedding, 4)
		} else {
			assert.Nil(t, after[i].EnglishEmbedding)
		}
	}
}

func TestReembed_EmptyStore(t *testing.T) {
	var progress bytes.Buffer
	p := newTestPipeline(t, newTestRepo(t), mock.NewMockEmbedder(), WithProgress(&progress, 10))

	stats, err := p.Reembed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Contains(t, progress.String(), "No pairs found")
}
