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

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

// MediaRepository implements storage.MediaRepository for BadgerDB.
type MediaRepository struct {
	backend *Backend
}

var _ storage.MediaRepository = (*MediaRepository)(nil)

// NewMediaRepository creates a new MediaRepository.
func NewMediaRepository(backend *Backend) (*MediaRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &MediaRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *MediaRepository) Close() error {
	return nil
}

// ReplaceMedia swaps the media of a post for the given items.
func (r *MediaRepository) ReplaceMedia(ctx context.Context, postID string, media []core.Media) ([]core.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assigned := storage.AssignMediaIDs(postID, media)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		post, err := readPost(tx, postID)
		if err != nil {
			return err
		}
		if post == nil {
			return storage.ErrNotFound
		}

		if err := deleteMedia(tx, postID); err != nil {
			return err
		}
		for i := range assigned {
			if err := tx.Set(makeMediaKey(postID, i), storage.MarshalMedia(&assigned[i])); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// GetMediaForPosts returns media keyed by post ID, in stored order.
func (r *MediaRepository) GetMediaForPosts(ctx context.Context, postIDs ...string) (map[string][]core.Media, error) {
	result := make(map[string][]core.Media)
	if len(postIDs) == 0 {
		return result, nil
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, postID := range postIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, seen := result[postID]; seen {
				continue
			}

			prefix := makeMediaPrefix(postID)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			iter := tx.NewIterator(opts)

			var items []core.Media
			for iter.Rewind(); iter.Valid(); iter.Next() {
				var media *core.Media
				if err := iter.Item().Value(func(val []byte) error {
					var err error
					media, err = storage.UnmarshalMedia(val)
					return err
				}); err != nil {
					iter.Close()
					return err
				}
				items = append(items, *media)
			}
			iter.Close()

			if len(items) > 0 {
				result[postID] = items
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteMediaForPost removes every media item of a post.
func (r *MediaRepository) DeleteMediaForPost(ctx context.Context, postID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteMedia(tx, postID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// deleteMedia removes the media keys of a post within a transaction.
func deleteMedia(tx *badger.Txn, postID string) error {
	prefix := makeMediaPrefix(postID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	// Collect first; keys are not deleted while the iterator is open
	var keys [][]byte
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
