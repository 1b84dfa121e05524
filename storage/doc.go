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

// Package storage provides the storage abstraction layer for folio.
//
// This package defines repository interfaces that decouple the post store from
// search and maintenance logic. Two backends implement them:
//
//   - storage/badger: embedded key-value store, the default
//   - storage/sqlite: relational store with a posts table and a media table
//     that cascades on post deletion
//
// # Constructor Return Type Pattern
//
// Public constructors return the repository interfaces:
//
//	posts, media, err := badger.NewRepositories(path)
//
// Internal constructors (newBackend, newPostRepository, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Posts and Media
//
// Posts are returned without media. Callers resolve media for the posts they
// keep with MediaRepository.GetMediaForPosts, in one round trip.
//
// # Serialization
//
// Binary encodings for posts, media and embedding vectors are built with
// mus-go. The badger backend stores them as values and the sqlite backend
// stores encoded vectors in the embedding column.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
