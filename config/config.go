// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads folio settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/reembed"
	"github.com/poiesic/folio/search"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Environment variables that override file settings.
const (
	EnvDBPath            = "FOLIO_DB_PATH"
	EnvStoreBackend      = "FOLIO_STORE_BACKEND"
	EnvEmbeddingProvider = "FOLIO_EMBEDDING_PROVIDER"
	EnvEmbeddingHost     = "FOLIO_EMBEDDING_HOST"
	EnvEmbeddingModel    = "FOLIO_EMBEDDING_MODEL"
	EnvLogLevel          = "FOLIO_LOG_LEVEL"
)

// ErrInvalidConfig is returned when loaded settings fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// File is the on-disk configuration.
type File struct {
	LogLevel string `yaml:"log_level"`

	Store struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"store"`

	Embedding struct {
		Provider string `yaml:"provider"`
		Host     string `yaml:"host"`
		Model    string `yaml:"model"`
	} `yaml:"embedding"`

	Search struct {
		// Limit 0 keeps the searcher's own defaults.
		Limit     int     `yaml:"limit"`
		Threshold float32 `yaml:"threshold"`
	} `yaml:"search"`

	Reembed struct {
		BatchSize      int           `yaml:"batch_size"`
		ReportInterval int           `yaml:"report_interval"`
		MaxRetries     int           `yaml:"max_retries"`
		RetryDelay     time.Duration `yaml:"retry_delay"`
		RateLimit      float64       `yaml:"rate_limit"`
	} `yaml:"reembed"`
}

// Default returns the built-in settings.
func Default() *File {
	f := &File{LogLevel: "info"}
	f.Store.Backend = BackendBadger
	f.Store.Path = "folio.db"

	aiDefaults := ai.DefaultConfig()
	f.Embedding.Provider = aiDefaults.Provider
	f.Embedding.Host = aiDefaults.EmbeddingHost
	f.Embedding.Model = aiDefaults.EmbeddingModel

	f.Search.Threshold = search.DefaultThreshold

	rd := reembed.DefaultConfig()
	f.Reembed.BatchSize = rd.BatchSize
	f.Reembed.ReportInterval = rd.ReportInterval
	f.Reembed.MaxRetries = rd.MaxRetries
	f.Reembed.RetryDelay = rd.RetryDelay
	f.Reembed.RateLimit = rd.RateLimit
	return f
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*File, error) {
	f := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	f.applyEnv()

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override(&f.Store.Path, EnvDBPath)
	override(&f.Store.Backend, EnvStoreBackend)
	override(&f.Embedding.Provider, EnvEmbeddingProvider)
	override(&f.Embedding.Host, EnvEmbeddingHost)
	override(&f.Embedding.Model, EnvEmbeddingModel)
	override(&f.LogLevel, EnvLogLevel)
}

// Validate checks the settings.
func (f *File) Validate() error {
	if _, err := ParseLevel(f.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(f.Store.Backend) {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, f.Store.Backend)
	}
	if strings.TrimSpace(f.Store.Path) == "" {
		return fmt.Errorf("%w: store path is required", ErrInvalidConfig)
	}
	if f.Search.Limit < 0 {
		return fmt.Errorf("%w: search limit must not be negative", ErrInvalidConfig)
	}
	if f.Search.Threshold < -1 || f.Search.Threshold > 1 {
		return fmt.Errorf("%w: search threshold must be within [-1, 1]", ErrInvalidConfig)
	}
	if err := f.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := f.ReembedConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig returns the embedding settings as an ai.Config.
func (f *File) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(f.Embedding.Provider),
		ai.WithEmbeddingHost(f.Embedding.Host),
		ai.WithEmbeddingModel(f.Embedding.Model),
	)
}

// ReembedConfig returns the maintenance settings as a reembed.Config.
func (f *File) ReembedConfig() *reembed.Config {
	c := reembed.DefaultConfig()
	c.BatchSize = f.Reembed.BatchSize
	c.ReportInterval = f.Reembed.ReportInterval
	c.MaxRetries = f.Reembed.MaxRetries
	c.RetryDelay = f.Reembed.RetryDelay
	c.RateLimit = f.Reembed.RateLimit
	return c
}

// SearchOptions returns the default search options.
func (f *File) SearchOptions() *search.Options {
	return &search.Options{
		Limit:     f.Search.Limit,
		Threshold: search.Threshold(f.Search.Threshold),
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
