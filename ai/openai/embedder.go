package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/pairfinder/ai"
	"github.com/poiesic/pairfinder/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder against an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	embedder    embeddings.Embedder
	model       string
	dimensions  int
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:    embedder,
		model:       config.EmbeddingModel,
		dimensions:  config.Dimensions,
		timeout:     config.Timeout,
		maxAttempts: config.MaxAttempts,
		retryDelay:  config.RetryDelay,
		logger:      slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Dimensions returns the configured vector length.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", core.ErrInvalidInput)
	}
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", core.ErrInvalidInput, i)
		}
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	return e.embed(ctx, texts)
}

// embed performs one bounded request per attempt and checks the response shape.
func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		result, err := e.embedder.EmbedDocuments(reqCtx, texts)
		if err != nil {
			return err
		}
		if err := e.checkResponse(result, len(texts)); err != nil {
			return err
		}
		vectors = result
		return nil
	}, e.maxAttempts, e.retryDelay)

	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingUnavailable, err)
	}
	return vectors, nil
}

func (e *Embedder) checkResponse(vectors [][]float32, want int) error {
	if len(vectors) == 0 {
		return ai.ErrEmptyResponse
	}
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", ai.ErrEmptyResponse, len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != e.dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ai.ErrDimensionMismatch, i, len(v), e.dimensions)
		}
		if err := core.CheckVector(v); err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return nil
}
