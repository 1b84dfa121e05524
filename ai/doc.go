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

// Package ai defines the embedding service abstraction.
//
// The Embedder interface turns text into a fixed-length vector. Folio ships a
// deterministic hashed bag-of-words embedder (package embedding) and an
// optional model-backed one (package ai/openai) that talks to any
// OpenAI-compatible endpoint. Both produce 384-dimensional vectors so stored
// and query embeddings stay comparable.
//
// # Configuration
//
//	cfg := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderOpenAI),
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithEmbeddingModel("all-minilm"),
//	)
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package ai
