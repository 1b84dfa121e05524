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

import (
	"fmt"
	"strings"
)

// ValidatePost validates a Post according to domain rules.
//
// Validation rules:
//   - Title must not be blank
//   - Status must be planned, in-progress or completed
//   - Every media item must be valid
//   - Embedding, when present, must have EmbeddingDimensions components
//
// NOT validated:
//   - ID (assigned on create when empty)
//   - Timestamps (assigned by the store)
func ValidatePost(post *Post) error {
	if post == nil {
		return fmt.Errorf("%w: post is nil", ErrInvalidPost)
	}

	if strings.TrimSpace(post.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyTitle)
	}

	if err := ValidateStatus(post.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPost, err)
	}

	for i := range post.Media {
		if err := ValidateMedia(&post.Media[i]); err != nil {
			return fmt.Errorf("%w: media %d: %w", ErrInvalidPost, i, err)
		}
	}

	if post.Embedding != nil {
		if err := ValidateEmbedding(post.Embedding); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPost, err)
		}
	}

	return nil
}

// ValidateMedia validates a Media item.
func ValidateMedia(media *Media) error {
	if media == nil {
		return fmt.Errorf("%w: media is nil", ErrInvalidMedia)
	}
	if err := ValidateMediaKind(media.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMedia, err)
	}
	if strings.TrimSpace(media.URL) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMedia, ErrEmptyMediaURL)
	}
	return nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(status Status) error {
	switch status {
	case StatusPlanned, StatusInProgress, StatusCompleted:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
}

// ValidateMediaKind validates that a MediaKind has a known value.
func ValidateMediaKind(kind MediaKind) error {
	switch kind {
	case MediaImage, MediaVideo, MediaDocument:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMediaKind, string(kind))
}

// ValidateEmbedding checks the embedding length.
func ValidateEmbedding(vector []float32) error {
	if len(vector) != EmbeddingDimensions {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrInvalidEmbedding, len(vector), EmbeddingDimensions)
	}
	return nil
}

// ValidateFilters rejects filters that name unknown statuses.
func ValidateFilters(f Filters) error {
	for _, s := range f.Statuses {
		if err := ValidateStatus(s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
	}
	return nil
}
