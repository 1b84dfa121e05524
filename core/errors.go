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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidPost indicates a Post failed validation.
	ErrInvalidPost = errors.New("invalid post")

	// ErrEmptyTitle indicates the post Title field is blank.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrInvalidStatus indicates an unknown Status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidMedia indicates a Media item failed validation.
	ErrInvalidMedia = errors.New("invalid media")

	// ErrInvalidMediaKind indicates an unknown MediaKind value.
	ErrInvalidMediaKind = errors.New("invalid media kind")

	// ErrEmptyMediaURL indicates a media item without a URL.
	ErrEmptyMediaURL = errors.New("media url cannot be empty")

	// ErrInvalidEmbedding indicates an embedding of the wrong length.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrInvalidFilter indicates a search filter that can never be satisfied.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrForbidden indicates the session lacks the rights for a mutation.
	ErrForbidden = errors.New("forbidden")
)
