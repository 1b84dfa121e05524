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

package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/embedding"
	"github.com/poiesic/folio/storage"
	"golang.org/x/sync/errgroup"
)

// Searcher provides hybrid semantic and text search over posts.
// It holds no per-query state and is safe for concurrent use.
type Searcher struct {
	posts     storage.PostRepository
	media     storage.MediaRepository
	generator *embedding.Generator
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	posts storage.PostRepository,
	media storage.MediaRepository,
	generator *embedding.Generator,
	opts ...Option,
) (*Searcher, error) {
	if posts == nil {
		return nil, ErrPostRepositoryRequired
	}
	if media == nil {
		return nil, ErrMediaRepositoryRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Searcher{
		posts:     posts,
		media:     media,
		generator: generator,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search runs the semantic and text matchers concurrently and merges their
// results. It never fails; store errors yield fewer or no results.
func (s *Searcher) Search(ctx context.Context, query string, opts *Options) []*core.SearchResult {
	return s.SearchWithMonitor(ctx, query, opts, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
//
// A blank query returns an empty result without touching the store.
// Each matcher is capped at opts.Limit (default 5). Results appear at most
// once per post, a semantic match taking precedence, ordered semantic (by
// similarity), then exact, then text, and are truncated to opts.Limit
// (default 10).
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, opts *Options, monitor SearchMonitor) []*core.SearchResult {
	if strings.TrimSpace(query) == "" {
		return []*core.SearchResult{}
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	subLimit := opts.limitOr(DefaultHybridSubLimit)
	var semantic, text []*core.SearchResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semantic = s.semanticSearch(gctx, query, opts, subLimit, monitor)
		return nil
	})
	g.Go(func() error {
		text = s.textSearch(gctx, query, opts, subLimit, monitor)
		return nil
	})
	_ = g.Wait() // matchers absorb their own errors

	results := mergeResults(semantic, text, opts.limitOr(DefaultLimit))
	monitor.Finish(results)

	return results
}

// mergeResults deduplicates by post ID keeping the first occurrence, with
// semantic results first, then orders by match type. The sort is stable so
// semantic results keep their similarity order and text matches keep store
// order.
func mergeResults(semantic, text []*core.SearchResult, limit int) []*core.SearchResult {
	seen := make(map[string]bool, len(semantic)+len(text))
	merged := make([]*core.SearchResult, 0, len(semantic)+len(text))

	for _, batch := range [][]*core.SearchResult{semantic, text} {
		for _, r := range batch {
			if seen[r.Post.ID] {
				continue
			}
			seen[r.Post.ID] = true
			merged = append(merged, r)
		}
	}

	slices.SortStableFunc(merged, func(a, b *core.SearchResult) int {
		return cmp.Compare(a.MatchType.Rank(), b.MatchType.Rank())
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// attachMedia resolves media for the posts in results with one lookup.
func (s *Searcher) attachMedia(ctx context.Context, results []*core.SearchResult) error {
	if len(results) == 0 {
		return nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Post.ID
	}

	byPost, err := s.media.GetMediaForPosts(ctx, ids...)
	if err != nil {
		return err
	}

	for _, r := range results {
		media := byPost[r.Post.ID]
		if media == nil {
			media = []core.Media{}
		}
		r.Post.Media = media
	}
	return nil
}
