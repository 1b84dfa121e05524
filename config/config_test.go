package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/folio/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", f.LogLevel)
	assert.Equal(t, BackendBadger, f.Store.Backend)
	assert.Equal(t, ai.ProviderHash, f.Embedding.Provider)
	assert.Zero(t, f.Search.Limit)
	assert.InDelta(t, 0.3, f.Search.Threshold, 1e-6)
	assert.Equal(t, 100, f.Reembed.BatchSize)
	assert.Equal(t, time.Second, f.Reembed.RetryDelay)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
log_level: debug
store:
  backend: sqlite
  path: /tmp/site.db
embedding:
  provider: openai
  host: http://models:8080
  model: all-minilm
search:
  limit: 4
  threshold: 0.5
reembed:
  batch_size: 25
  retry_delay: 250ms
  rate_limit: 10
`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", f.LogLevel)
	assert.Equal(t, BackendSQLite, f.Store.Backend)
	assert.Equal(t, "/tmp/site.db", f.Store.Path)

	aiCfg := f.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, ai.ProviderOpenAI, aiCfg.Provider)
	assert.Equal(t, "http://models:8080/v1", aiCfg.EmbeddingHost)

	opts := f.SearchOptions()
	assert.Equal(t, 4, opts.Limit)
	assert.InDelta(t, 0.5, *opts.Threshold, 1e-6)

	rc := f.ReembedConfig()
	assert.Equal(t, 25, rc.BatchSize)
	assert.Equal(t, 100, rc.ReportInterval, "unset keys keep defaults")
	assert.Equal(t, 250*time.Millisecond, rc.RetryDelay)
	assert.InDelta(t, 10.0, rc.RateLimit, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "store:\n  path: from-file.db\n")
	t.Setenv(EnvDBPath, "from-env.db")
	t.Setenv(EnvStoreBackend, "sqlite")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvEmbeddingProvider, "openai")
	t.Setenv(EnvEmbeddingHost, "http://env-host")
	t.Setenv(EnvEmbeddingModel, "env-model")

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", f.Store.Path)
	assert.Equal(t, BackendSQLite, f.Store.Backend)
	assert.Equal(t, "warn", f.LogLevel)
	assert.Equal(t, "openai", f.Embedding.Provider)
	assert.Equal(t, "http://env-host", f.Embedding.Host)
	assert.Equal(t, "env-model", f.Embedding.Model)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "store: [unclosed"},
		{"bad backend", "store:\n  backend: mongo\n"},
		{"bad level", "log_level: chatty\n"},
		{"bad provider", "embedding:\n  provider: magic\n"},
		{"bad threshold", "search:\n  threshold: 2\n"},
		{"bad limit", "search:\n  limit: -1\n"},
		{"bad batch", "reembed:\n  batch_size: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ValidationSentinel(t *testing.T) {
	_, err := Load(writeFile(t, "store:\n  backend: mongo\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
