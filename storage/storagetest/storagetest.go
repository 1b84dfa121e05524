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

// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty pair of repositories and returns a cleanup func.
type Factory func(t *testing.T) (storage.PostRepository, storage.MediaRepository, func())

// RunRepositoryTests exercises the PostRepository and MediaRepository contracts.
func RunRepositoryTests(t *testing.T, open Factory) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, open) })
	t.Run("SaveKeepsEmbeddingAndCreatedOn", func(t *testing.T) { testSaveKeepsEmbedding(t, open) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, open) })
	t.Run("FindPostsOrder", func(t *testing.T) { testFindPostsOrder(t, open) })
	t.Run("FindPostsFilters", func(t *testing.T) { testFindPostsFilters(t, open) })
	t.Run("FindPostsWithEmbedding", func(t *testing.T) { testFindPostsWithEmbedding(t, open) })
	t.Run("UpdateEmbeddingMissing", func(t *testing.T) { testUpdateEmbeddingMissing(t, open) })
	t.Run("ReplaceMedia", func(t *testing.T) { testReplaceMedia(t, open) })
	t.Run("ReplaceMediaMissingPost", func(t *testing.T) { testReplaceMediaMissingPost(t, open) })
	t.Run("DeleteCascadesMedia", func(t *testing.T) { testDeleteCascades(t, open) })
	t.Run("DeleteMissing", func(t *testing.T) { testDeleteMissing(t, open) })
}

func unitVector(i int) []float32 {
	v := make([]float32, core.EmbeddingDimensions)
	v[i] = 1
	return v
}

func samplePost(id string, created time.Time) *core.Post {
	return &core.Post{
		ID:          id,
		Title:       "Post " + id,
		Description: "Description of " + id,
		Content:     "Content",
		Tags:        []string{"Python"},
		Status:      core.StatusCompleted,
		CreatedOn:   created,
		GithubURL:   "https://github.com/example/" + id,
		Methodology: []string{"Step one", "Step two"},
		Results:     "Good",
	}
}

func testSaveAndGet(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()
	ctx := context.Background()

	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	saved, err := posts.SavePost(ctx, samplePost("p1", created))
	require.NoError(t, err)
	assert.Equal(t, created, saved.CreatedOn)
	assert.False(t, saved.UpdatedOn.IsZero())
	assert.Nil(t, saved.Embedding)

	got, err := posts.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Post p1", got.Title)
	assert.Equal(t, []string{"Python"}, got.Tags)
	assert.Equal(t, []string{"Step one", "Step two"}, got.Methodology)
	assert.Equal(t, "https://github.com/example/p1", got.GithubURL)
	assert.Empty(t, got.DemoURL)
	assert.Equal(t, created, got.CreatedOn)
	assert.Nil(t, got.Media)
}

func testSaveKeepsEmbedding(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()
	ctx := context.Background()

	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	_, err := posts.SavePost(ctx, samplePost("p1", created))
	require.NoError(t, err)
	require.NoError(t, posts.UpdateEmbedding(ctx, "p1", unitVector(3)))

	update := samplePost("p1", time.Time{})
	update.Title = "Renamed"
	update.Embedding = unitVector(9) // ignored by SavePost
	_, err = posts.SavePost(ctx, update)
	require.NoError(t, err)

	got, err := posts.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, created, got.CreatedOn)
	assert.Equal(t, unitVector(3), got.Embedding)

	all, err := posts.FindPosts(ctx, storage.PostQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testGetMissing(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()

	_, err := posts.GetPost(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testFindPostsOrder(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offsets := []time.Duration{0, 48 * time.Hour, 24 * time.Hour}
		_, err := posts.SavePost(ctx, samplePost(id, base.Add(offsets[i])))
		require.NoError(t, err)
	}

	all, err := posts.FindPosts(ctx, storage.PostQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "mid", all[1].ID)
	assert.Equal(t, "old", all[2].ID)

	limited, err := posts.FindPosts(ctx, storage.PostQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "new", limited[0].ID)

	_, err = posts.FindPosts(ctx, storage.PostQuery{Limit: -1})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func testFindPostsFilters(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := samplePost("a", base)
	a.Status = core.StatusPlanned
	a.Tags = []string{"SQL", "Tableau"}
	b := samplePost("b", base.Add(time.Hour))
	b.Featured = true
	b.Tags = []string{"NLP", "Python"}
	c := samplePost("c", base.Add(2*time.Hour))
	c.Status = core.StatusInProgress
	c.Tags = nil
	for _, p := range []*core.Post{a, b, c} {
		_, err := posts.SavePost(ctx, p)
		require.NoError(t, err)
	}

	yes := true
	tests := []struct {
		name    string
		filters core.Filters
		want    []string
	}{
		{"no filters", core.Filters{}, []string{"c", "b", "a"}},
		{"status", core.Filters{Statuses: []core.Status{core.StatusPlanned, core.StatusInProgress}}, []string{"c", "a"}},
		{"featured", core.Filters{Featured: &yes}, []string{"b"}},
		{"tags overlap", core.Filters{Tags: []string{"NLP", "SQL"}}, []string{"b", "a"}},
		{"combined", core.Filters{Statuses: []core.Status{core.StatusCompleted}, Tags: []string{"SQL"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := posts.FindPosts(ctx, storage.PostQuery{Filters: tt.filters})
			require.NoError(t, err)
			var ids []string
			for _, p := range found {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func testFindPostsWithEmbedding(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := posts.SavePost(ctx, samplePost("with", base))
	require.NoError(t, err)
	_, err = posts.SavePost(ctx, samplePost("without", base.Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, posts.UpdateEmbedding(ctx, "with", unitVector(0)))

	found, err := posts.FindPosts(ctx, storage.PostQuery{WithEmbedding: true})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "with", found[0].ID)
	assert.Equal(t, unitVector(0), found[0].Embedding)
}

func testUpdateEmbeddingMissing(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()

	err := posts.UpdateEmbedding(context.Background(), "ghost", unitVector(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testReplaceMedia(t *testing.T, open Factory) {
	posts, media, cleanup := open(t)
	defer cleanup()
	ctx := context.Background()

	_, err := posts.SavePost(ctx, samplePost("p1", time.Time{}))
	require.NoError(t, err)
	_, err = posts.SavePost(ctx, samplePost("p2", time.Time{}))
	require.NoError(t, err)

	stored, err := media.ReplaceMedia(ctx, "p1", []core.Media{
		{ID: "m1", Kind: core.MediaImage, URL: "https://img/1.png", Caption: "one"},
		{Kind: core.MediaDocument, URL: "https://doc/2.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "m1", stored[0].ID)
	assert.NotEmpty(t, stored[1].ID)
	assert.Equal(t, "p1", stored[1].PostID)

	_, err = media.ReplaceMedia(ctx, "p2", []core.Media{{ID: "m1", Kind: core.MediaVideo, URL: "https://vid/3.mp4"}})
	require.NoError(t, err)

	byPost, err := media.GetMediaForPosts(ctx, "p1", "p2", "p3")
	require.NoError(t, err)
	require.Len(t, byPost["p1"], 2)
	assert.Equal(t, "https://img/1.png", byPost["p1"][0].URL)
	assert.Equal(t, "https://doc/2.pdf", byPost["p1"][1].URL)
	require.Len(t, byPost["p2"], 1)
	assert.Equal(t, core.MediaVideo, byPost["p2"][0].Kind)
	assert.NotContains(t, byPost, "p3")

	// Replacing drops the prior items
	_, err = media.ReplaceMedia(ctx, "p1", []core.Media{{Kind: core.MediaImage, URL: "https://img/new.png"}})
	require.NoError(t, err)
	byPost, err = media.GetMediaForPosts(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, byPost["p1"], 1)
	assert.Equal(t, "https://img/new.png", byPost["p1"][0].URL)

	require.NoError(t, media.DeleteMediaForPost(ctx, "p1"))
	byPost, err = media.GetMediaForPosts(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, byPost)
}

func testReplaceMediaMissingPost(t *testing.T, open Factory) {
	_, media, cleanup := open(t)
	defer cleanup()

	_, err := media.ReplaceMedia(context.Background(), "ghost", []core.Media{{Kind: core.MediaImage, URL: "u"}})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteCascades(t *testing.T, open Factory) {
	posts, media, cleanup := open(t)
	defer cleanup()
	ctx := context.Background()

	_, err := posts.SavePost(ctx, samplePost("p1", time.Time{}))
	require.NoError(t, err)
	_, err = media.ReplaceMedia(ctx, "p1", []core.Media{
		{Kind: core.MediaImage, URL: "https://img/1.png"},
		{Kind: core.MediaImage, URL: "https://img/2.png"},
	})
	require.NoError(t, err)

	require.NoError(t, posts.DeletePost(ctx, "p1"))

	_, err = posts.GetPost(ctx, "p1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	byPost, err := media.GetMediaForPosts(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, byPost)
	all, err := posts.FindPosts(ctx, storage.PostQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testDeleteMissing(t *testing.T, open Factory) {
	posts, _, cleanup := open(t)
	defer cleanup()

	assert.ErrorIs(t, posts.DeletePost(context.Background(), "ghost"), storage.ErrNotFound)
}
