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

package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/core"
)

// Generator produces embeddings for queries and posts. It never fails: when
// the underlying embedder errors, panics or returns a vector of the wrong
// length, the zero vector is returned and the problem is logged.
type Generator struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// GeneratorOption is a functional option for configuring a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets the logger. A nil logger uses slog.Default().
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator wraps embedder. A nil embedder selects HashEmbedder.
func NewGenerator(embedder ai.Embedder, opts ...GeneratorOption) *Generator {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	g := &Generator{
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "embedding")
	return g
}

// Embed returns a unit-norm or all-zero vector of core.EmbeddingDimensions
// components for text.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	vector, err := g.embed(ctx, text)
	if err != nil {
		g.logger.Warn("embedding degraded to zero vector", "length", len(text), "err", err)
		return Zero()
	}
	return vector
}

// EmbedPost embeds PostText(title, description).
func (g *Generator) EmbedPost(ctx context.Context, title, description string) []float32 {
	return g.Embed(ctx, PostText(title, description))
}

func (g *Generator) embed(ctx context.Context, text string) (vector []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			vector, err = nil, fmt.Errorf("embedder panic: %v", r)
		}
	}()

	vector, err = g.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateEmbedding(vector); err != nil {
		return nil, err
	}
	if n := Norm(vector); n != 0 && math.Abs(n-1) > 1e-6 {
		vector = NormalizeVector(vector)
	}
	return vector, nil
}
