package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/folio/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQuerier answers every query with a single post named after it. Queries
// listed in block wait until their channel closes or the search is canceled.
type stubQuerier struct {
	mu       sync.Mutex
	queries  []string
	canceled []string
	block    map[string]chan struct{}
	started  chan string
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{block: map[string]chan struct{}{}, started: make(chan string, 16)}
}

func (q *stubQuerier) Search(ctx context.Context, query string, _ *Options) []*core.SearchResult {
	q.mu.Lock()
	q.queries = append(q.queries, query)
	gate := q.block[query]
	q.mu.Unlock()
	q.started <- query

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			q.mu.Lock()
			q.canceled = append(q.canceled, query)
			q.mu.Unlock()
			return []*core.SearchResult{}
		}
	}
	return []*core.SearchResult{{Post: &core.Post{ID: query}, MatchType: core.MatchText}}
}

func (q *stubQuerier) searched() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.queries...)
}

func (q *stubQuerier) wasCanceled(query string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, c := range q.canceled {
		if c == query {
			return true
		}
	}
	return false
}

type delivery struct {
	query   string
	results []*core.SearchResult
}

type deliveries struct {
	mu  sync.Mutex
	got []delivery
}

func (d *deliveries) record(query string, results []*core.SearchResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, delivery{query: query, results: results})
}

func (d *deliveries) all() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.got...)
}

func TestNewLiveQuery(t *testing.T) {
	_, err := NewLiveQuery(nil, 0, nil)
	assert.ErrorIs(t, err, ErrQuerierRequired)

	live, err := NewLiveQuery(newStubQuerier(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultQuietPeriod, live.delay)
	live.Stop()
}

func TestLiveQuery_OnlyLatestQuerySearched(t *testing.T) {
	querier := newStubQuerier()
	var got deliveries
	live, err := NewLiveQuery(querier, 50*time.Millisecond, got.record)
	require.NoError(t, err)
	defer live.Stop()

	for _, q := range []string{"c", "ch", "chu", "churn"} {
		live.Update(q, nil)
	}

	require.Eventually(t, func() bool { return len(got.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"churn"}, querier.searched())
	results := got.all()
	require.Len(t, results, 1)
	assert.Equal(t, "churn", results[0].query)
	require.Len(t, results[0].results, 1)
	assert.Equal(t, "churn", results[0].results[0].Post.ID)
}

func TestLiveQuery_BlankQueryClearsImmediately(t *testing.T) {
	querier := newStubQuerier()
	var got deliveries
	live, err := NewLiveQuery(querier, time.Hour, got.record)
	require.NoError(t, err)
	defer live.Stop()

	live.Update("churn", nil)
	live.Update("   ", nil)

	results := got.all()
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].results)
	assert.Empty(t, results[0].results)
	assert.Empty(t, querier.searched(), "pending search is dropped")
}

func TestLiveQuery_SupersededSearchIsCanceled(t *testing.T) {
	querier := newStubQuerier()
	querier.block["first"] = make(chan struct{})

	var got deliveries
	live, err := NewLiveQuery(querier, time.Millisecond, got.record)
	require.NoError(t, err)
	defer live.Stop()

	live.Update("first", nil)
	select {
	case q := <-querier.started:
		require.Equal(t, "first", q)
	case <-time.After(time.Second):
		t.Fatal("first search never started")
	}

	live.Update("second", nil)

	require.Eventually(t, func() bool { return len(got.all()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return querier.wasCanceled("first") }, time.Second, 5*time.Millisecond)

	results := got.all()
	require.Len(t, results, 1)
	assert.Equal(t, "second", results[0].query)
}

func TestLiveQuery_Stop(t *testing.T) {
	querier := newStubQuerier()
	var got deliveries
	live, err := NewLiveQuery(querier, 20*time.Millisecond, got.record)
	require.NoError(t, err)

	live.Update("churn", nil)
	live.Stop()
	live.Update("sales", nil)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, querier.searched())
	assert.Empty(t, got.all())
}
