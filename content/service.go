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

package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

// EmbeddingUpdater refreshes the stored embedding of one post.
type EmbeddingUpdater interface {
	UpdatePostEmbedding(ctx context.Context, postID, title, description string) bool
}

// Service manages posts and their media on behalf of an admin session.
// Reads are open to everyone.
type Service struct {
	posts      storage.PostRepository
	media      storage.MediaRepository
	embeddings EmbeddingUpdater
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a content service.
func NewService(
	posts storage.PostRepository,
	media storage.MediaRepository,
	embeddings EmbeddingUpdater,
	opts ...Option,
) (*Service, error) {
	if posts == nil {
		return nil, ErrPostRepositoryRequired
	}
	if media == nil {
		return nil, ErrMediaRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingUpdaterRequired
	}

	s := &Service{
		posts:      posts,
		media:      media,
		embeddings: embeddings,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "content")

	return s, nil
}

// ListPosts returns every post, newest first, with media attached.
func (s *Service) ListPosts(ctx context.Context) ([]*core.Post, error) {
	posts, err := s.posts.FindPosts(ctx, storage.PostQuery{})
	if err != nil {
		return nil, err
	}
	if err := s.attachMedia(ctx, posts...); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns a post with its media.
func (s *Service) GetPost(ctx context.Context, id string) (*core.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachMedia(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePost stores a new post and its media, then computes its embedding.
// An empty ID is replaced by a generated one. A failed embedding is logged
// and leaves the post without one; the post is still created.
func (s *Service) CreatePost(ctx context.Context, session *core.Session, post *core.Post) (*core.Post, error) {
	if !session.IsAdmin() {
		return nil, core.ErrForbidden
	}
	if post == nil {
		return nil, core.ErrInvalidPost
	}

	post = post.Clone()
	if post.ID == "" {
		post.ID = core.NewPostID()
	}
	if err := core.ValidatePost(post); err != nil {
		return nil, err
	}

	_, err := s.posts.GetPost(ctx, post.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: post %s", storage.ErrDuplicateKey, post.ID)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	return s.persist(ctx, post, "created")
}

// UpdatePost replaces a post and its media, then recomputes its embedding.
func (s *Service) UpdatePost(ctx context.Context, session *core.Session, post *core.Post) (*core.Post, error) {
	if !session.IsAdmin() {
		return nil, core.ErrForbidden
	}
	if post == nil {
		return nil, core.ErrInvalidPost
	}

	post = post.Clone()
	if err := core.ValidatePost(post); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetPost(ctx, post.ID); err != nil {
		return nil, err
	}

	return s.persist(ctx, post, "updated")
}

// DeletePost removes a post and all of its media.
func (s *Service) DeletePost(ctx context.Context, session *core.Session, id string) error {
	if !session.IsAdmin() {
		return core.ErrForbidden
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post deleted", "post", id)
	return nil
}

func (s *Service) persist(ctx context.Context, post *core.Post, verb string) (*core.Post, error) {
	saved, err := s.posts.SavePost(ctx, post)
	if err != nil {
		return nil, err
	}
	if _, err := s.media.ReplaceMedia(ctx, saved.ID, post.Media); err != nil {
		return nil, err
	}

	if !s.embeddings.UpdatePostEmbedding(ctx, saved.ID, saved.Title, saved.Description) {
		s.logger.Warn("post "+verb+" without embedding", "post", saved.ID)
	}

	s.logger.Info("post "+verb, "post", saved.ID, "media", len(post.Media))
	return s.GetPost(ctx, saved.ID)
}

func (s *Service) attachMedia(ctx context.Context, posts ...*core.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	byPost, err := s.media.GetMediaForPosts(ctx, ids...)
	if err != nil {
		return err
	}
	for _, p := range posts {
		media := byPost[p.ID]
		if media == nil {
			media = []core.Media{}
		}
		p.Media = media
	}
	return nil
}
