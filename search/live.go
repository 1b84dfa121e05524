package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/folio/core"
)

// DefaultQuietPeriod is how long LiveQuery waits after the last keystroke.
const DefaultQuietPeriod = 300 * time.Millisecond

// Querier runs a hybrid search.
type Querier interface {
	Search(ctx context.Context, query string, opts *Options) []*core.SearchResult
}

// LiveQuery drives search-as-you-type. Each Update restarts a quiet period;
// only the latest query is searched, and results of a superseded query are
// never delivered. A blank query clears the results immediately.
type LiveQuery struct {
	querier   Querier
	delay     time.Duration
	onResults func(query string, results []*core.SearchResult)

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	stopped bool
}

// NewLiveQuery creates a LiveQuery. onResults is called with the results of
// the latest query, one call at a time; it must not call Update or Stop.
// A non-positive delay uses DefaultQuietPeriod.
func NewLiveQuery(querier Querier, delay time.Duration, onResults func(query string, results []*core.SearchResult)) (*LiveQuery, error) {
	if querier == nil {
		return nil, ErrQuerierRequired
	}
	if delay <= 0 {
		delay = DefaultQuietPeriod
	}
	if onResults == nil {
		onResults = func(string, []*core.SearchResult) {}
	}
	return &LiveQuery{querier: querier, delay: delay, onResults: onResults}, nil
}

// Update records a new query and schedules its search.
func (l *LiveQuery) Update(query string, opts *Options) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}

	seq := l.supersedeLocked()

	if strings.TrimSpace(query) == "" {
		l.onResults(query, []*core.SearchResult{})
		return
	}

	l.timer = time.AfterFunc(l.delay, func() { l.run(seq, query, opts) })
}

// Stop cancels any pending or in-flight search. No results are delivered afterwards.
func (l *LiveQuery) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.supersedeLocked()
	l.stopped = true
}

// supersedeLocked invalidates the current request and returns the next sequence number.
func (l *LiveQuery) supersedeLocked() uint64 {
	l.seq++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return l.seq
}

func (l *LiveQuery) run(seq uint64, query string, opts *Options) {
	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.mu.Unlock()

	results := l.querier.Search(ctx, query, opts)

	l.mu.Lock()
	defer l.mu.Unlock()
	cancel()
	if seq != l.seq {
		return
	}
	l.cancel = nil
	l.onResults(query, results)
}
