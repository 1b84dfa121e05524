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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

const postColumns = `id, title, description, content, tags, status, featured, created_on, updated_on,
	github_url, demo_url, dataset_url, methodology, results, embedding`

// postRow is the relational shape of a post.
type postRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Content     string         `db:"content"`
	Tags        string         `db:"tags"`
	Status      string         `db:"status"`
	Featured    bool           `db:"featured"`
	CreatedOn   int64          `db:"created_on"`
	UpdatedOn   int64          `db:"updated_on"`
	GithubURL   sql.NullString `db:"github_url"`
	DemoURL     sql.NullString `db:"demo_url"`
	DatasetURL  sql.NullString `db:"dataset_url"`
	Methodology string         `db:"methodology"`
	Results     string         `db:"results"`
	Embedding   []byte         `db:"embedding"`
}

func newPostRow(post *core.Post) (*postRow, error) {
	tags, err := json.Marshal(nonNil(post.Tags))
	if err != nil {
		return nil, fmt.Errorf("%w: tags: %w", storage.ErrSerializationFailed, err)
	}
	methodology, err := json.Marshal(nonNil(post.Methodology))
	if err != nil {
		return nil, fmt.Errorf("%w: methodology: %w", storage.ErrSerializationFailed, err)
	}
	return &postRow{
		ID:          post.ID,
		Title:       post.Title,
		Description: post.Description,
		Content:     post.Content,
		Tags:        string(tags),
		Status:      string(post.Status),
		Featured:    post.Featured,
		CreatedOn:   post.CreatedOn.UnixMicro(),
		UpdatedOn:   post.UpdatedOn.UnixMicro(),
		GithubURL:   nullString(post.GithubURL),
		DemoURL:     nullString(post.DemoURL),
		DatasetURL:  nullString(post.DatasetURL),
		Methodology: string(methodology),
		Results:     post.Results,
	}, nil
}

func (row *postRow) toPost() (*core.Post, error) {
	post := &core.Post{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Content:     row.Content,
		Status:      core.Status(row.Status),
		Featured:    row.Featured,
		CreatedOn:   time.UnixMicro(row.CreatedOn).UTC(),
		UpdatedOn:   time.UnixMicro(row.UpdatedOn).UTC(),
		GithubURL:   row.GithubURL.String,
		DemoURL:     row.DemoURL.String,
		DatasetURL:  row.DatasetURL.String,
		Results:     row.Results,
	}
	if err := decodeStrings(row.Tags, &post.Tags); err != nil {
		return nil, fmt.Errorf("%w: tags of %s: %w", storage.ErrSerializationFailed, row.ID, err)
	}
	if err := decodeStrings(row.Methodology, &post.Methodology); err != nil {
		return nil, fmt.Errorf("%w: methodology of %s: %w", storage.ErrSerializationFailed, row.ID, err)
	}
	if row.Embedding != nil {
		vector, err := storage.UnmarshalVector(row.Embedding)
		if err != nil {
			return nil, err
		}
		post.Embedding = vector
	}
	return post, nil
}

// PostRepository implements storage.PostRepository for SQLite.
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

// SavePost inserts or updates a post by ID, leaving the embedding untouched.
func (r *PostRepository) SavePost(ctx context.Context, post *core.Post) (*core.Post, error) {
	if post == nil || post.ID == "" {
		return nil, fmt.Errorf("%w: post id is required", storage.ErrInvalidQuery)
	}

	var stored *core.Post
	err := r.backend.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC().Truncate(time.Microsecond)

		toSave := post.Clone()
		if toSave.CreatedOn.IsZero() {
			var existing int64
			err := tx.GetContext(ctx, &existing, `SELECT created_on FROM posts WHERE id = ?`, post.ID)
			switch {
			case err == nil:
				toSave.CreatedOn = time.UnixMicro(existing)
			case errors.Is(err, sql.ErrNoRows):
				toSave.CreatedOn = now
			default:
				return err
			}
		}
		toSave.UpdatedOn = now

		row, err := newPostRow(toSave)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO posts (id, title, description, content, tags, status, featured, created_on, updated_on,
				github_url, demo_url, dataset_url, methodology, results)
			VALUES (:id, :title, :description, :content, :tags, :status, :featured, :created_on, :updated_on,
				:github_url, :demo_url, :dataset_url, :methodology, :results)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				content = excluded.content,
				tags = excluded.tags,
				status = excluded.status,
				featured = excluded.featured,
				created_on = excluded.created_on,
				updated_on = excluded.updated_on,
				github_url = excluded.github_url,
				demo_url = excluded.demo_url,
				dataset_url = excluded.dataset_url,
				methodology = excluded.methodology,
				results = excluded.results`, row)
		if err != nil {
			return err
		}

		stored, err = getPost(ctx, tx, post.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetPost retrieves a single post by ID.
func (r *PostRepository) GetPost(ctx context.Context, id string) (*core.Post, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return getPost(ctx, r.backend.db, id)
}

// FindPosts returns posts matching the query, newest first.
func (r *PostRepository) FindPosts(ctx context.Context, query storage.PostQuery) ([]*core.Post, error) {
	if query.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storage.ErrInvalidQuery, query.Limit)
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var (
		where []string
		args  []any
	)
	if query.WithEmbedding {
		where = append(where, "embedding IS NOT NULL")
	}
	if statuses := query.Filters.Statuses; len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		where = append(where, "status IN (?)")
		args = append(args, values)
	}
	if query.Filters.Featured != nil {
		where = append(where, "featured = ?")
		args = append(args, *query.Filters.Featured)
	}
	if tags := query.Filters.Tags; len(tags) > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value IN (?))")
		args = append(args, tags)
	}

	q := "SELECT " + postColumns + " FROM posts"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_on DESC, id DESC"
	if query.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, query.Limit)
	}

	if len(args) > 0 {
		var err error
		q, args, err = sqlx.In(q, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
		}
	}

	var rows []postRow
	if err := r.backend.db.SelectContext(ctx, &rows, r.backend.db.Rebind(q), args...); err != nil {
		return nil, err
	}

	posts := make([]*core.Post, 0, len(rows))
	for i := range rows {
		post, err := rows[i].toPost()
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// UpdateEmbedding replaces the embedding of a post.
func (r *PostRepository) UpdateEmbedding(ctx context.Context, id string, vector []float32) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	res, err := r.backend.db.ExecContext(ctx,
		`UPDATE posts SET embedding = ? WHERE id = ?`, storage.MarshalVector(vector), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// DeletePost removes a post; the schema cascades the delete to its media.
func (r *PostRepository) DeletePost(ctx context.Context, id string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	res, err := r.backend.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func getPost(ctx context.Context, q sqlx.QueryerContext, id string) (*core.Post, error) {
	var row postRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return row.toPost()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decodeStrings(data string, out *[]string) error {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return err
	}
	if len(values) > 0 {
		*out = values
	}
	return nil
}
