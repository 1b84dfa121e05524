package search

import (
	"context"
	"slices"
	"strings"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/embedding"
	"github.com/poiesic/folio/storage"
)

// SemanticSearch ranks posts by cosine similarity between the query embedding
// and each stored post embedding. Posts whose similarity is at least the
// threshold (default 0.3, inclusive) are returned, most similar first, up to
// opts.Limit (default 10). Posts without an embedding are never candidates.
func (s *Searcher) SemanticSearch(ctx context.Context, query string, opts *Options) []*core.SearchResult {
	return s.semanticSearch(ctx, query, opts, opts.limitOr(DefaultLimit), &noopMonitor{})
}

func (s *Searcher) semanticSearch(ctx context.Context, query string, opts *Options, limit int, monitor SearchMonitor) []*core.SearchResult {
	filters := opts.filters()
	if err := core.ValidateFilters(filters); err != nil {
		s.logger.Error("semantic search rejected filters", "query", query, "err", err)
		monitor.Failed(StageSemantic, err)
		return []*core.SearchResult{}
	}

	queryVector := s.generator.Embed(ctx, query)

	candidates, err := s.posts.FindPosts(ctx, storage.PostQuery{
		Filters:       filters,
		WithEmbedding: true,
	})
	if err != nil {
		s.logger.Error("semantic search failed to load candidates", "query", query, "err", err)
		monitor.Failed(StageSemantic, err)
		return []*core.SearchResult{}
	}

	threshold := opts.threshold()
	results := make([]*core.SearchResult, 0, len(candidates))
	for _, post := range candidates {
		similarity := embedding.CosineSimilarity(queryVector, post.Embedding)
		if similarity < threshold {
			continue
		}
		results = append(results, &core.SearchResult{
			Post:       post,
			Similarity: similarity,
			MatchType:  core.MatchSemantic,
		})
	}

	slices.SortFunc(results, compareSemantic)
	if len(results) > limit {
		results = results[:limit]
	}

	if err := s.attachMedia(ctx, results); err != nil {
		s.logger.Error("semantic search failed to load media", "query", query, "err", err)
		monitor.Failed(StageMedia, err)
		return []*core.SearchResult{}
	}

	monitor.AfterSemanticSearch(results)
	return results
}

// compareSemantic orders by similarity descending, then newest post, then ID.
func compareSemantic(a, b *core.SearchResult) int {
	switch {
	case a.Similarity > b.Similarity:
		return -1
	case a.Similarity < b.Similarity:
		return 1
	}
	if c := b.Post.CreatedOn.Compare(a.Post.CreatedOn); c != 0 {
		return c
	}
	return strings.Compare(a.Post.ID, b.Post.ID)
}
