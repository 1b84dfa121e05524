package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/ai/mock"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/embedding"
	"github.com/poiesic/folio/storage"
	"github.com/poiesic/folio/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// countingPosts wraps a PostRepository, counting FindPosts calls and
// optionally failing them.
type countingPosts struct {
	storage.PostRepository
	finds atomic.Int32
	err   error
}

func (c *countingPosts) FindPosts(ctx context.Context, q storage.PostQuery) ([]*core.Post, error) {
	c.finds.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.PostRepository.FindPosts(ctx, q)
}

type failingMedia struct {
	storage.MediaRepository
}

func (failingMedia) GetMediaForPosts(ctx context.Context, postIDs ...string) (map[string][]core.Media, error) {
	return nil, errStoreDown
}

type fixture struct {
	posts    *countingPosts
	media    storage.MediaRepository
	embedder *mock.MockEmbedder
	searcher *Searcher
	created  time.Time
}

func newFixture(t *testing.T, embedder *mock.MockEmbedder) *fixture {
	t.Helper()
	postRepo, mediaRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		mediaRepo.Close()
		postRepo.Close()
		backend.Close()
	})

	f := &fixture{
		posts:    &countingPosts{PostRepository: postRepo},
		media:    mediaRepo,
		embedder: embedder,
		created:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	var e ai.Embedder
	if embedder != nil {
		e = embedder
	}
	f.searcher, err = NewSearcher(f.posts, f.media, embedding.NewGenerator(e))
	require.NoError(t, err)
	return f
}

// addPost stores a post, each one a minute newer than the last, with the
// given embedding (nil stores none).
func (f *fixture) addPost(t *testing.T, id, title, description string, vector []float32) *core.Post {
	t.Helper()
	ctx := context.Background()
	f.created = f.created.Add(time.Minute)
	saved, err := f.posts.SavePost(ctx, &core.Post{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      core.StatusCompleted,
		CreatedOn:   f.created,
	})
	require.NoError(t, err)
	if vector != nil {
		require.NoError(t, f.posts.UpdateEmbedding(ctx, id, vector))
	}
	return saved
}

// axis returns the unit vector along dimension i.
func axis(i int) []float32 {
	v := make([]float32, core.EmbeddingDimensions)
	v[i] = 1
	return v
}

// blend returns cos*e0 + sin*e1, a unit vector at the given cosine to e0.
func blend(cos float64) []float32 {
	v := make([]float32, core.EmbeddingDimensions)
	v[0] = float32(cos)
	v[1] = float32(math.Sqrt(1 - cos*cos))
	return v
}

func ids(results []*core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Post.ID
	}
	return out
}

func TestNewSearcher(t *testing.T) {
	postRepo, mediaRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		mediaRepo.Close()
		postRepo.Close()
		backend.Close()
	}()

	generator := embedding.NewGenerator(nil)

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(postRepo, mediaRepo, generator)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(postRepo, mediaRepo, generator, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(postRepo, mediaRepo, generator, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil post repository", func(t *testing.T) {
		_, err := NewSearcher(nil, mediaRepo, generator)
		assert.Equal(t, ErrPostRepositoryRequired, err)
	})

	t.Run("nil media repository", func(t *testing.T) {
		_, err := NewSearcher(postRepo, nil, generator)
		assert.Equal(t, ErrMediaRepositoryRequired, err)
	})

	t.Run("nil generator", func(t *testing.T) {
		_, err := NewSearcher(postRepo, mediaRepo, nil)
		assert.Equal(t, ErrGeneratorRequired, err)
	})

	t.Run("failing option", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewSearcher(postRepo, mediaRepo, generator, func(*Searcher) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestSearch_EmptyDatabase(t *testing.T) {
	f := newFixture(t, nil)
	results := f.searcher.Search(context.Background(), "anything", nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_BlankQueryShortCircuits(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedder())
	f.addPost(t, "p1", "Anything", "", axis(0))

	for _, q := range []string{"", " ", "\t\n "} {
		results := f.searcher.Search(context.Background(), q, nil)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Zero(t, f.posts.finds.Load())
	assert.Zero(t, f.embedder.CallCount())
}

func TestSemanticSearch_ThresholdIsInclusive(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedder().WithVectors(map[string][]float32{"q": axis(0)}))
	f.addPost(t, "p1", "One", "", blend(0.3))

	similarity := embedding.CosineSimilarity(axis(0), blend(0.3))
	ctx := context.Background()

	at := f.searcher.SemanticSearch(ctx, "q", &Options{Threshold: Threshold(similarity)})
	require.Len(t, at, 1)
	assert.Equal(t, similarity, at[0].Similarity)
	assert.Equal(t, core.MatchSemantic, at[0].MatchType)

	above := f.searcher.SemanticSearch(ctx, "q", &Options{
		Threshold: Threshold(math.Nextafter32(similarity, 1)),
	})
	assert.Empty(t, above)
}

func TestSemanticSearch_DefaultThreshold(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedder().WithVectors(map[string][]float32{"q": axis(0)}))
	f.addPost(t, "low", "Low", "", blend(0.29))
	f.addPost(t, "high", "High", "", blend(0.31))
	f.addPost(t, "none", "None", "", nil)

	results := f.searcher.SemanticSearch(context.Background(), "q", nil)
	assert.Equal(t, []string{"high"}, ids(results))
}

func TestSemanticSearch_Ordering(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedder().WithVectors(map[string][]float32{"q": axis(0)}))
	f.addPost(t, "b-old", "B", "", blend(0.5))
	f.addPost(t, "best", "Best", "", blend(0.9))
	f.addPost(t, "a-new", "A", "", blend(0.5))

	results := f.searcher.SemanticSearch(context.Background(), "q", nil)
	assert.Equal(t, []string{"best", "a-new", "b-old"}, ids(results))
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestSemanticSearch_TieBreakOnID(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedder().WithVectors(map[string][]float32{"q": axis(0)}))
	ctx := context.Background()
	same := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"c", "a", "b"} {
		_, err := f.posts.SavePost(ctx, &core.Post{ID: id, Title: id, Status: core.StatusCompleted, CreatedOn: same})
		require.NoError(t, err)
		require.NoError(t, f.posts.UpdateEmbedding(ctx, id, blend(0.7)))
	}

	results := f.searcher.SemanticSearch(ctx, "q", nil)
	assert.Equal(t, []string{"a", "b", "c"}, ids(results))
}

func TestTextSearch_Classification(t *testing.T) {
	f := newFixture(t, nil)
	f.addPost(t, "title", "Customer CHURN model", "Predicts cancellations", nil)
	f.addPost(t, "desc", "Retention dashboard", "Tracks churn weekly", nil)
	f.addPost(t, "miss", "Image classifier", "Cats and dogs", nil)

	results := f.searcher.TextSearch(context.Background(), "Churn", nil)
	require.Len(t, results, 2)

	// store order is newest first
	assert.Equal(t, "desc", results[0].Post.ID)
	assert.Equal(t, core.MatchText, results[0].MatchType)
	assert.Equal(t, "title", results[1].Post.ID)
	assert.Equal(t, core.MatchExact, results[1].MatchType)
	assert.False(t, results[0].HasSimilarity())
}

func TestTextSearch_LiteralQuery(t *testing.T) {
	f := newFixture(t, nil)
	f.addPost(t, "pct", "100% coverage", "", nil)
	f.addPost(t, "plain", "1000 coverage", "", nil)

	results := f.searcher.TextSearch(context.Background(), "100%", nil)
	assert.Equal(t, []string{"pct"}, ids(results))
}

func TestSearch_HybridPrecedenceAndOrder(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedder().WithVectors(map[string][]float32{"search": axis(0)}))
	f.addPost(t, "text", "Notes", "full-text search notes", axis(3))
	f.addPost(t, "exact", "Search engine", "", axis(2))
	f.addPost(t, "semantic", "Vector search", "", axis(0))

	results := f.searcher.Search(context.Background(), "search", nil)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"semantic", "exact", "text"}, ids(results))
	assert.Equal(t, core.MatchSemantic, results[0].MatchType)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, core.MatchExact, results[1].MatchType)
	assert.Equal(t, core.MatchText, results[2].MatchType)
}

func TestSearch_Limits(t *testing.T) {
	f := newFixture(t, nil)
	for i := range 7 {
		f.addPost(t, fmt.Sprintf("p%d", i), fmt.Sprintf("Post %d", i), "", axis(10+i))
	}
	ctx := context.Background()

	t.Run("default sub limit", func(t *testing.T) {
		assert.Len(t, f.searcher.Search(ctx, "post", &Options{Threshold: Threshold(0.99)}), DefaultHybridSubLimit)
	})

	t.Run("explicit limit", func(t *testing.T) {
		results := f.searcher.Search(ctx, "post", &Options{Limit: 2, Threshold: Threshold(0.99)})
		assert.Equal(t, []string{"p6", "p5"}, ids(results))
	})

	t.Run("text search default limit", func(t *testing.T) {
		assert.Len(t, f.searcher.TextSearch(ctx, "post", nil), 7)
	})

	t.Run("final limit", func(t *testing.T) {
		assert.Len(t, f.searcher.Search(ctx, "post", &Options{Limit: 1}), 1)
	})
}

func TestSearch_MergeCapsAtDefaultLimit(t *testing.T) {
	semantic := make([]*core.SearchResult, 0, 8)
	text := make([]*core.SearchResult, 0, 8)
	for i := range 8 {
		semantic = append(semantic, &core.SearchResult{Post: &core.Post{ID: fmt.Sprintf("s%d", i)}, MatchType: core.MatchSemantic})
		text = append(text, &core.SearchResult{Post: &core.Post{ID: fmt.Sprintf("t%d", i)}, MatchType: core.MatchText})
	}
	merged := mergeResults(semantic, text, DefaultLimit)
	require.Len(t, merged, DefaultLimit)
	assert.Equal(t, "s7", merged[7].Post.ID)
	assert.Equal(t, "t1", merged[9].Post.ID)
}

func TestSearch_Filters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addPost(t, "done", "Pipeline done", "", nil)
	_, err := f.posts.SavePost(ctx, &core.Post{
		ID:        "wip",
		Title:     "Pipeline wip",
		Status:    core.StatusInProgress,
		Tags:      []string{"ml"},
		CreatedOn: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	results := f.searcher.Search(ctx, "pipeline", &Options{
		Filters: core.Filters{Statuses: []core.Status{core.StatusInProgress}},
	})
	assert.Equal(t, []string{"wip"}, ids(results))

	results = f.searcher.Search(ctx, "pipeline", &Options{Filters: core.Filters{Tags: []string{"ml"}}})
	assert.Equal(t, []string{"wip"}, ids(results))

	recorder := &FailureRecorder{}
	results = f.searcher.SearchWithMonitor(ctx, "pipeline", &Options{
		Filters: core.Filters{Statuses: []core.Status{"archived"}},
	}, recorder)
	assert.Empty(t, results)
	assert.ErrorIs(t, recorder.Err(StageSemantic), core.ErrInvalidFilter)
	assert.ErrorIs(t, recorder.Err(StageText), core.ErrInvalidFilter)
}

func TestSearch_AttachesMedia(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addPost(t, "p1", "Gallery post", "", nil)
	f.addPost(t, "p2", "Gallery bare", "", nil)
	_, err := f.media.ReplaceMedia(ctx, "p1", []core.Media{{Kind: core.MediaImage, URL: "https://example.com/a.png"}})
	require.NoError(t, err)

	results := f.searcher.Search(ctx, "gallery", nil)
	require.Len(t, results, 2)
	byID := map[string]*core.Post{}
	for _, r := range results {
		byID[r.Post.ID] = r.Post
	}
	require.Len(t, byID["p1"].Media, 1)
	assert.Equal(t, "https://example.com/a.png", byID["p1"].Media[0].URL)
	assert.NotNil(t, byID["p2"].Media)
	assert.Empty(t, byID["p2"].Media)
}

func TestSearch_StoreFailureYieldsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	f.addPost(t, "p1", "Churn model", "", embedding.HashText("churn"))
	f.posts.err = errStoreDown

	recorder := &FailureRecorder{}
	results := f.searcher.SearchWithMonitor(context.Background(), "churn", nil, recorder)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.True(t, recorder.HasFailures())
	assert.ErrorIs(t, recorder.Err(StageSemantic), errStoreDown)
	assert.ErrorIs(t, recorder.Err(StageText), errStoreDown)
}

func TestSearch_MediaFailureYieldsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	f.addPost(t, "p1", "Churn model", "", nil)
	searcher, err := NewSearcher(f.posts, failingMedia{f.media}, embedding.NewGenerator(nil))
	require.NoError(t, err)

	recorder := &FailureRecorder{}
	results := searcher.SearchWithMonitor(context.Background(), "churn", nil, recorder)
	assert.Empty(t, results)
	assert.ErrorIs(t, recorder.Err(StageMedia), errStoreDown)
}

type recordingMonitor struct {
	noopMonitor
	started  atomic.Value
	semantic atomic.Int32
	text     atomic.Int32
	finished atomic.Int32
}

func (m *recordingMonitor) Start(q string)                              { m.started.Store(q) }
func (m *recordingMonitor) AfterSemanticSearch(r []*core.SearchResult) { m.semantic.Store(int32(len(r))) }
func (m *recordingMonitor) AfterTextSearch(r []*core.SearchResult)     { m.text.Store(int32(len(r))) }
func (m *recordingMonitor) Finish(r []*core.SearchResult)              { m.finished.Store(int32(len(r))) }

func TestSearchWithMonitor_Hooks(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedder().WithVectors(map[string][]float32{"model": axis(0)}))
	f.addPost(t, "p1", "Model", "", axis(0))
	f.addPost(t, "p2", "Other", "a model", axis(1))

	m := &recordingMonitor{}
	results := f.searcher.SearchWithMonitor(context.Background(), "model", nil, m)
	assert.Len(t, results, 2)
	assert.Equal(t, "model", m.started.Load())
	assert.EqualValues(t, 1, m.semantic.Load())
	assert.EqualValues(t, 2, m.text.Load())
	assert.EqualValues(t, 2, m.finished.Load())
}

// Title substring hit with a semantic threshold the hash embedding cannot reach.
func TestScenario_TitleMatchIsExact(t *testing.T) {
	f := newFixture(t, nil)
	f.addPost(t, "churn", "Customer Churn Prediction Model",
		"Gradient boosted trees flag subscribers likely to cancel",
		embedding.HashText(embedding.PostText("Customer Churn Prediction Model", "Gradient boosted trees flag subscribers likely to cancel")))
	f.addPost(t, "other", "Image Classifier", "Convolutional network for product photos",
		embedding.HashText("Image Classifier Convolutional network for product photos"))

	ctx := context.Background()
	results := f.searcher.Search(ctx, "churn", &Options{Threshold: Threshold(0.99)})
	require.Len(t, results, 1)
	assert.Equal(t, "churn", results[0].Post.ID)
	assert.Equal(t, core.MatchExact, results[0].MatchType)

	// With the default threshold the post may also match semantically; it
	// still appears once.
	results = f.searcher.Search(ctx, "churn", nil)
	require.Len(t, results, 1)
	assert.Equal(t, "churn", results[0].Post.ID)
}

func TestScenario_SemanticOnlyMatch(t *testing.T) {
	query := "predicting customer behavior"
	f := newFixture(t, mock.NewMockEmbedder().WithVectors(map[string][]float32{query: axis(0)}))
	f.addPost(t, "churn", "Customer Churn Prediction Model", "Flags likely cancellations", blend(0.6))
	f.addPost(t, "far", "Image Classifier", "Product photos", blend(0.1))

	results := f.searcher.Search(context.Background(), query, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "churn", results[0].Post.ID)
	assert.Equal(t, core.MatchSemantic, results[0].MatchType)
	assert.GreaterOrEqual(t, results[0].Similarity, DefaultThreshold)

	results = f.searcher.Search(context.Background(), query, &Options{Threshold: Threshold(0.7)})
	assert.Empty(t, results)
}
