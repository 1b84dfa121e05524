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
	"math"
	"strings"
	"unicode/utf16"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/core"
)

// HashText maps text to a deterministic unit vector of core.EmbeddingDimensions
// components using a position-weighted hashed bag of words.
//
// The text is lower-cased and split on whitespace. Token i adds 1/(i+1) to the
// bucket selected by its 32-bit polynomial hash. The result is L2-normalized;
// text without tokens yields the zero vector.
func HashText(text string) []float32 {
	tokens := strings.Fields(strings.ToLower(text))

	acc := make([]float64, core.EmbeddingDimensions)
	for i, token := range tokens {
		acc[bucket(hashToken(token))] += 1 / float64(i+1)
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	norm := math.Sqrt(sum)

	out := make([]float32, core.EmbeddingDimensions)
	if norm == 0 {
		return out
	}
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

// hashToken computes h = h*31 + unit over the token's UTF-16 code units with
// 32-bit two's complement wraparound, so stored embeddings stay comparable
// across platforms.
func hashToken(token string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(token)) {
		h = h*31 + int32(unit)
	}
	return h
}

// bucket maps a hash to [0, EmbeddingDimensions). The absolute value is taken
// in 64 bits so math.MinInt32 stays positive.
func bucket(h int32) int {
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % core.EmbeddingDimensions)
}

// PostText is the text embedded for a post: title and description joined by
// a space, trimmed.
func PostText(title, description string) string {
	return strings.TrimSpace(title + " " + description)
}

// HashEmbedder implements ai.Embedder with HashText. It never fails.
type HashEmbedder struct{}

var _ ai.Embedder = HashEmbedder{}

// EmbedText returns HashText(text).
func (HashEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return HashText(text), nil
}

// EmbedTexts returns HashText for each text.
func (HashEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = HashText(text)
	}
	return out, nil
}
