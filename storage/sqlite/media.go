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

package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

type mediaRow struct {
	PostID   string `db:"post_id"`
	ID       string `db:"id"`
	Position int    `db:"position"`
	Kind     string `db:"kind"`
	URL      string `db:"url"`
	Caption  string `db:"caption"`
	Alt      string `db:"alt"`
}

func (row *mediaRow) toMedia() core.Media {
	return core.Media{
		ID:      row.ID,
		PostID:  row.PostID,
		Kind:    core.MediaKind(row.Kind),
		URL:     row.URL,
		Caption: row.Caption,
		Alt:     row.Alt,
	}
}

// MediaRepository implements storage.MediaRepository for SQLite.
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
	assigned := storage.AssignMediaIDs(postID, media)

	err := r.backend.WithTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts WHERE id = ?`, postID); err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE post_id = ?`, postID); err != nil {
			return err
		}
		for i, m := range assigned {
			row := mediaRow{
				PostID:   postID,
				ID:       m.ID,
				Position: i,
				Kind:     string(m.Kind),
				URL:      m.URL,
				Caption:  m.Caption,
				Alt:      m.Alt,
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO media (post_id, id, position, kind, url, caption, alt)
				VALUES (:post_id, :id, :position, :kind, :url, :caption, :alt)`, row); err != nil {
				return fmt.Errorf("inserting media %s: %w", m.ID, err)
			}
		}
		return nil
	})
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
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	q, args, err := sqlx.In(`SELECT post_id, id, position, kind, url, caption, alt
		FROM media WHERE post_id IN (?) ORDER BY post_id, position`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}

	var rows []mediaRow
	if err := r.backend.db.SelectContext(ctx, &rows, r.backend.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].PostID] = append(result[rows[i].PostID], rows[i].toMedia())
	}
	return result, nil
}

// DeleteMediaForPost removes every media item of a post.
func (r *MediaRepository) DeleteMediaForPost(ctx context.Context, postID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	_, err := r.backend.db.ExecContext(ctx, `DELETE FROM media WHERE post_id = ?`, postID)
	return err
}
