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

package reembed

import (
	"context"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

const (
	// DefaultBatchSize is the default number of posts handed out per batch
	DefaultBatchSize = 100
)

// PostIterator walks every post in batches, newest first.
type PostIterator struct {
	repo      storage.PostRepository
	batchSize int
}

// NewPostIterator creates a new post iterator.
// batchSize: number of posts per batch; values <= 0 use DefaultBatchSize
func NewPostIterator(repo storage.PostRepository, batchSize int) *PostIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &PostIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// Load fetches the full post list in store order.
func (it *PostIterator) Load(ctx context.Context) ([]*core.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return it.repo.FindPosts(ctx, storage.PostQuery{})
}

// ForEach loads all posts and calls fn for each batch.
// Iteration stops on the first error from fn or on context cancellation,
// which is checked between batches.
func (it *PostIterator) ForEach(ctx context.Context, fn func([]*core.Post) error) error {
	posts, err := it.Load(ctx)
	if err != nil {
		return err
	}
	return it.forEachBatch(ctx, posts, fn)
}

func (it *PostIterator) forEachBatch(ctx context.Context, posts []*core.Post, fn func([]*core.Post) error) error {
	for i := 0; i < len(posts); i += it.batchSize {
		end := min(i+it.batchSize, len(posts))

		if err := fn(posts[i:end]); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
