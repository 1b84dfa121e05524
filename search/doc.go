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

// Package search provides hybrid semantic and text search over posts.
//
// The Searcher combines two matchers:
//   - Semantic: cosine similarity between the query embedding and stored
//     post embeddings, kept when at or above a threshold
//   - Text: case-insensitive substring match on title (exact) or
//     description (text)
//
// Search runs both concurrently and merges them with semantic matches first.
// Search never returns an error. Store failures are logged and yield empty
// results; a SearchMonitor sees them through its Failed hook.
//
// LiveQuery wraps a Searcher for search-as-you-type callers, with a quiet
// period and last-request-wins delivery.
package search
