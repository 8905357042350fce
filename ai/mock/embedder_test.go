package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()

	v1, err := m.EmbedText(context.Background(), "cash")
	require.NoError(t, err)
	v2, err := m.EmbedText(context.Background(), "cash")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, DefaultDimensions)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockEmbedder_CustomFunc(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockEmbedder().WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return nil, boom
	})

	_, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, boom)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	vecs, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProviderWithEmbedder(NewMockEmbedder())
	assert.Equal(t, "mock-embedding", p.Model())
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
