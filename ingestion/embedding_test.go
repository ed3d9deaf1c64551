package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingProvider(t *testing.T) {
	_, err := NewEmbeddingProvider(nil, testConfig())
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewEmbeddingProvider(newTestEmbedder(), ai.NewConfig(ai.WithDimensions(0)))
	assert.Error(t, err)

	_, err = NewEmbeddingProvider(newTestEmbedder(), testConfig(), WithRateLimit(-1))
	assert.Error(t, err)

	p, err := NewEmbeddingProvider(newTestEmbedder(), nil)
	require.NoError(t, err)
	assert.Equal(t, ai.DefaultConfig().Dimensions, p.Dimensions())
}

func TestEmbeddingProvider_Embed(t *testing.T) {
	embedder := newTestEmbedder()
	p := newTestProvider(embedder)

	result := p.Embed(context.Background(), "Producto: Taza")
	require.True(t, result.OK())
	assert.Len(t, result.Vector, testDims)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestEmbeddingProvider_TruncatesInput(t *testing.T) {
	embedder := newTestEmbedder()
	cfg := ai.NewConfig(ai.WithDimensions(testDims), ai.WithMaxInputChars(10))
	p, err := NewEmbeddingProvider(embedder, cfg)
	require.NoError(t, err)

	result := p.Embed(context.Background(), strings.Repeat("á", 25))
	require.True(t, result.OK())
	require.Len(t, embedder.Texts(), 1)
	assert.Equal(t, strings.Repeat("á", 10), embedder.Texts()[0])
}

func TestEmbeddingProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		respond func(ctx context.Context, text string) ([]float32, error)
		wantErr error
	}{
		{
			name: "service error",
			respond: func(ctx context.Context, text string) ([]float32, error) {
				return nil, errors.New("401 invalid api key")
			},
		},
		{
			name: "wrong dimension",
			respond: func(ctx context.Context, text string) ([]float32, error) {
				return make([]float32, testDims+1), nil
			},
			wantErr: ErrDimensionMismatch,
		},
		{
			name: "empty vector",
			respond: func(ctx context.Context, text string) ([]float32, error) {
				return nil, nil
			},
			wantErr: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := newTestEmbedder()
			embedder.EmbedTextFunc = tt.respond
			p := newTestProvider(embedder)

			result := p.Embed(context.Background(), "Producto: Taza")
			require.False(t, result.OK())
			assert.Nil(t, result.Vector)
			assert.Equal(t, core.KindEmbedding, result.Err.Kind)
			assert.ErrorIs(t, result.Err, core.ErrEmbedding)
			if tt.wantErr != nil {
				assert.ErrorIs(t, result.Err, tt.wantErr)
			}
		})
	}
}

func TestEmbeddingProvider_Cache(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	embedder := newTestEmbedder()
	p := newTestProvider(embedder, WithCache(stores.Cache, time.Hour))
	ctx := context.Background()

	first := p.Embed(ctx, "Producto: Taza")
	require.True(t, first.OK())
	assert.False(t, first.Cached)

	second := p.Embed(ctx, "Producto: Taza")
	require.True(t, second.OK())
	assert.True(t, second.Cached)
	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, 1, embedder.CallCount(), "cache hit skips the service")

	third := p.Embed(ctx, "Producto: Plato")
	require.True(t, third.OK())
	assert.False(t, third.Cached)
	assert.Equal(t, 2, embedder.CallCount())
}

func TestEmbeddingProvider_FailuresAreNotCached(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	embedder := newTestEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("503 service unavailable")
	}
	p := newTestProvider(embedder, WithCache(stores.Cache, 0))

	assert.False(t, p.Embed(context.Background(), "Producto: Taza").OK())

	embedder.EmbedTextFunc = nil
	result := p.Embed(context.Background(), "Producto: Taza")
	require.True(t, result.OK())
	assert.False(t, result.Cached)
	assert.Equal(t, 2, embedder.CallCount())
}

func TestEmbeddingProvider_RateLimitHonorsContext(t *testing.T) {
	embedder := newTestEmbedder()
	p := newTestProvider(embedder, WithRateLimit(0.001))

	// The first request spends the burst token.
	require.True(t, p.Embed(context.Background(), "uno").OK())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := p.Embed(ctx, "dos")
	require.False(t, result.OK())
	assert.Equal(t, core.KindEmbedding, result.Err.Kind)
	assert.Equal(t, 1, embedder.CallCount())
}
