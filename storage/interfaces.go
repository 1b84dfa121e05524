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

package storage

import (
	"context"

	"github.com/poiesic/folio/core"
)

// PostQuery selects posts from a PostRepository.
type PostQuery struct {
	// Filters restricts posts by status, featured flag and tags.
	Filters core.Filters
	// WithEmbedding restricts results to posts whose embedding is set.
	WithEmbedding bool
	// Limit caps the number of posts returned. Zero means no limit.
	Limit int
}

// PostRepository provides operations for managing posts.
// Implementations must be thread-safe and support concurrent access.
type PostRepository interface {
	// SavePost inserts or updates a post by ID.
	// On insert, CreatedOn defaults to now when zero. On update, the stored
	// CreatedOn is kept unless post.CreatedOn is set. UpdatedOn is always now.
	// The embedding column is never written; use UpdateEmbedding.
	// Returns the stored post without media.
	SavePost(ctx context.Context, post *core.Post) (*core.Post, error)

	// GetPost retrieves a single post by ID, without media.
	// Returns ErrNotFound if the post doesn't exist.
	GetPost(ctx context.Context, id string) (*core.Post, error)

	// FindPosts returns posts matching the query without media,
	// ordered by CreatedOn descending then ID descending.
	FindPosts(ctx context.Context, query PostQuery) ([]*core.Post, error)

	// UpdateEmbedding replaces the embedding of a post.
	// Returns ErrNotFound if the post doesn't exist.
	UpdateEmbedding(ctx context.Context, id string, vector []float32) error

	// DeletePost removes a post and every media item it owns.
	// Returns ErrNotFound if the post doesn't exist.
	DeletePost(ctx context.Context, id string) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// MediaRepository provides operations for managing media attachments.
type MediaRepository interface {
	// ReplaceMedia deletes every media item owned by postID and stores the
	// given items in order. Items without an ID get one derived from their
	// content. Returns the stored items.
	// Returns ErrNotFound if the post doesn't exist.
	ReplaceMedia(ctx context.Context, postID string, media []core.Media) ([]core.Media, error)

	// GetMediaForPosts returns the media of each requested post in stored
	// order, keyed by post ID. Posts without media are absent from the map.
	GetMediaForPosts(ctx context.Context, postIDs ...string) (map[string][]core.Media, error)

	// DeleteMediaForPost removes every media item owned by postID.
	DeleteMediaForPost(ctx context.Context, postID string) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// AssignMediaIDs fills in PostID and missing IDs for media about to be stored.
func AssignMediaIDs(postID string, media []core.Media) []core.Media {
	out := make([]core.Media, len(media))
	for i, m := range media {
		m.PostID = postID
		if m.ID == "" {
			m.ID = core.MediaIDFromContent(postID, i, m.URL)
		}
		out[i] = m
	}
	return out
}
