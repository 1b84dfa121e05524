package openai

import (
	"testing"

	"github.com/poiesic/folio/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := ai.NewConfig(
			ai.WithProvider(ai.ProviderOpenAI),
			ai.WithEmbeddingHost("http://localhost:11434"),
		)
		embedder, err := NewEmbedder(cfg)
		require.NoError(t, err)
		assert.NotNil(t, embedder)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewEmbedder(nil)
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithEmbeddingModel(""))
		_, err := NewEmbedder(cfg)
		assert.Error(t, err)
	})
}

func TestCheckDimensions(t *testing.T) {
	ok := [][]float32{make([]float32, 384), make([]float32, 384)}
	assert.NoError(t, checkDimensions(ok, 384))

	bad := [][]float32{make([]float32, 384), make([]float32, 768)}
	assert.ErrorIs(t, checkDimensions(bad, 384), ErrDimensionMismatch)
}
