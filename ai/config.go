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

package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/folio/core"
)

// Embedding providers.
const (
	// ProviderHash selects the built-in hashed bag-of-words embedder.
	ProviderHash = "hash"
	// ProviderOpenAI selects an OpenAI-compatible embedding endpoint.
	ProviderOpenAI = "openai"
)

// Config holds configuration for the embedding service.
type Config struct {
	// Provider selects the embedder implementation: "hash" or "openai".
	// Default: "hash"
	Provider string

	// EmbeddingHost is the base URL for the embedding service API.
	// Only used by the openai provider.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Only used by the openai provider. The model must produce
	// 384-dimensional vectors, e.g. "all-minilm".
	EmbeddingModel string

	// Dimensions is the expected embedding length. Stored embeddings and
	// query embeddings must agree, so only 384 is accepted.
	Dimensions int
}

// ConfigOption is a functional option for configuring Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding provider.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithEmbeddingHost sets the embedding service host.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderHash,
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "all-minilm",
		Dimensions:     core.EmbeddingDimensions,
	}
}

// NewConfig creates a new Config with the given options applied to defaults.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in the correct format.
// Adds /v1 suffix to the host if not present.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderHash
	}
	// Ensure EmbeddingHost ends with /v1 for OpenAI-compatible APIs
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	if c.Dimensions == 0 {
		c.Dimensions = core.EmbeddingDimensions
	}
}

// Validate checks that the configuration is valid.
// Normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Dimensions != core.EmbeddingDimensions {
		return fmt.Errorf("ai config: Dimensions must be %d, got %d", core.EmbeddingDimensions, c.Dimensions)
	}

	switch c.Provider {
	case ProviderHash:
		return nil
	case ProviderOpenAI:
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required")
		}
		if c.EmbeddingModel == "" {
			return errors.New("ai config: EmbeddingModel is required")
		}
		return nil
	default:
		return fmt.Errorf("ai config: unknown provider %q", c.Provider)
	}
}
