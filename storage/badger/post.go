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

package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

// PostRepository implements storage.PostRepository for BadgerDB.
type PostRepository struct {
	backend *Backend
}

var _ storage.PostRepository = (*PostRepository)(nil)

// NewPostRepository creates a new PostRepository.
func NewPostRepository(backend *Backend) (*PostRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &PostRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *PostRepository) Close() error {
	return nil
}

// SavePost inserts or updates a post by ID.
func (r *PostRepository) SavePost(ctx context.Context, post *core.Post) (*core.Post, error) {
	if post == nil || post.ID == "" {
		return nil, fmt.Errorf("%w: post id is required", storage.ErrInvalidQuery)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := post.Clone()
	stored.Media = nil

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()

		old, err := readPost(tx, post.ID)
		if err != nil {
			return err
		}

		if old != nil {
			if stored.CreatedOn.IsZero() {
				stored.CreatedOn = old.CreatedOn
			}
			stored.Embedding = old.Embedding
			if err := tx.Delete(makePostCreatedKey(old.CreatedOn, old.ID)); err != nil {
				return err
			}
		} else {
			if stored.CreatedOn.IsZero() {
				stored.CreatedOn = now
			}
			stored.Embedding = nil
		}
		stored.CreatedOn = stored.CreatedOn.UTC().Truncate(time.Microsecond)
		stored.UpdatedOn = now.Truncate(time.Microsecond)

		if err := tx.Set(makePostKey(stored.ID), storage.MarshalPost(stored)); err != nil {
			return err
		}
		if err := tx.Set(makePostCreatedKey(stored.CreatedOn, stored.ID), []byte(stored.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetPost retrieves a single post by ID.
func (r *PostRepository) GetPost(ctx context.Context, id string) (*core.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result *core.Post
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readPost(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindPosts returns posts matching the query, newest first.
func (r *PostRepository) FindPosts(ctx context.Context, query storage.PostQuery) ([]*core.Post, error) {
	if query.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storage.ErrInvalidQuery, query.Limit)
	}

	var results []*core.Post
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Reverse iteration over the creation index yields newest first
		prefix := []byte(postCreatedPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefixEnd(prefix)); iter.ValidForPrefix(prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			post, err := readPost(tx, id)
			if err != nil {
				return err
			}
			if post == nil {
				continue
			}
			if query.WithEmbedding && !post.HasEmbedding() {
				continue
			}
			if !query.Filters.Matches(post) {
				continue
			}

			results = append(results, post)
			if query.Limit > 0 && len(results) >= query.Limit {
				break
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateEmbedding replaces the embedding of a post.
func (r *PostRepository) UpdateEmbedding(ctx context.Context, id string, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		post, err := readPost(tx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return storage.ErrNotFound
		}
		post.Embedding = append([]float32(nil), vector...)
		if err := tx.Set(makePostKey(id), storage.MarshalPost(post)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeletePost removes a post, its index entry and all of its media.
func (r *PostRepository) DeletePost(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		post, err := readPost(tx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return storage.ErrNotFound
		}

		if err := deleteMedia(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(makePostCreatedKey(post.CreatedOn, post.ID)); err != nil {
			return err
		}
		if err := tx.Delete(makePostKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readPost reads a post within a transaction.
// Returns nil if the post doesn't exist.
func readPost(tx *badger.Txn, id string) (*core.Post, error) {
	item, err := tx.Get(makePostKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var post *core.Post
	err = item.Value(func(val []byte) error {
		var err error
		post, err = storage.UnmarshalPost(val)
		return err
	})
	return post, err
}
