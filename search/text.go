package search

import (
	"context"
	"strings"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

// TextSearch returns posts whose title or description contains the query,
// ignoring case. A title hit is an exact match; a description-only hit is a
// text match. Results keep store order (newest first), up to opts.Limit
// (default 10). The query is matched literally.
func (s *Searcher) TextSearch(ctx context.Context, query string, opts *Options) []*core.SearchResult {
	return s.textSearch(ctx, query, opts, opts.limitOr(DefaultLimit), &noopMonitor{})
}

func (s *Searcher) textSearch(ctx context.Context, query string, opts *Options, limit int, monitor SearchMonitor) []*core.SearchResult {
	filters := opts.filters()
	if err := core.ValidateFilters(filters); err != nil {
		s.logger.Error("text search rejected filters", "query", query, "err", err)
		monitor.Failed(StageText, err)
		return []*core.SearchResult{}
	}

	candidates, err := s.posts.FindPosts(ctx, storage.PostQuery{Filters: filters})
	if err != nil {
		s.logger.Error("text search failed to load candidates", "query", query, "err", err)
		monitor.Failed(StageText, err)
		return []*core.SearchResult{}
	}

	results := make([]*core.SearchResult, 0, limit)
	for _, post := range candidates {
		if len(results) >= limit {
			break
		}
		matchType, ok := matchText(post, query)
		if !ok {
			continue
		}
		results = append(results, &core.SearchResult{Post: post, MatchType: matchType})
	}

	if err := s.attachMedia(ctx, results); err != nil {
		s.logger.Error("text search failed to load media", "query", query, "err", err)
		monitor.Failed(StageMedia, err)
		return []*core.SearchResult{}
	}

	monitor.AfterTextSearch(results)
	return results
}

// matchText classifies a post against a query.
func matchText(post *core.Post, query string) (core.MatchType, bool) {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(post.Title), q) {
		return core.MatchExact, true
	}
	if strings.Contains(strings.ToLower(post.Description), q) {
		return core.MatchText, true
	}
	return "", false
}
