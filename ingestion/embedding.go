package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/pairfinder/ai"
	"github.com/poiesic/pairfinder/core"
)

// textRef locates one text of one pair in a batch.
type textRef struct {
	pair     int
	language core.Language
}

// embedPairs embeds every non-empty text of pairs into the matching column
// with a single batched request, retried with exponential backoff. Pairs are
// only modified once all vectors are available; a blank text clears its column.
func embedPairs(ctx context.Context, embedder ai.Embedder, pairs []*core.TranslationPair, maxAttempts int, retryDelay time.Duration) error {
	var (
		texts []string
		refs  []textRef
	)
	for i, pair := range pairs {
		for _, lang := range core.Languages {
			if text := pair.Text(lang); strings.TrimSpace(text) != "" {
				texts = append(texts, text)
				refs = append(refs, textRef{pair: i, language: lang})
			}
		}
	}
	if len(texts) == 0 {
		return nil
	}

	var vectors [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = embedder.EmbedTexts(ctx, texts)
		return err
	}, maxAttempts, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: embedding count mismatch: expected %d, got %d",
			core.ErrEmbeddingUnavailable, len(texts), len(vectors))
	}

	for _, pair := range pairs {
		pair.EnglishEmbedding = nil
		pair.ChineseEmbedding = nil
	}
	for i, ref := range refs {
		pairs[ref.pair].SetEmbedding(ref.language.Column(), vectors[i])
	}
	return nil
}
