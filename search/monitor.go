package search

import (
	"sync"

	"github.com/poiesic/folio/core"
)

// Stage names the part of a search that failed.
type Stage string

const (
	StageSemantic Stage = "semantic"
	StageText     Stage = "text"
	StageMedia    Stage = "media"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate results, or to tell a
// failed search apart from one that matched nothing.
//
// During a hybrid search the semantic and text hooks fire from separate
// goroutines, so implementations must be safe for concurrent use.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(results []*core.SearchResult)
	AfterTextSearch(results []*core.SearchResult)
	Failed(stage Stage, err error)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterSemanticSearch(_ []*core.SearchResult) {}
func (n *noopMonitor) AfterTextSearch(_ []*core.SearchResult)     {}
func (n *noopMonitor) Failed(_ Stage, _ error)                    {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)              {}

// FailureRecorder is a SearchMonitor that remembers failures.
type FailureRecorder struct {
	noopMonitor
	mu       sync.Mutex
	failures map[Stage]error
}

var _ SearchMonitor = (*FailureRecorder)(nil)

// Failed records err against stage.
func (r *FailureRecorder) Failed(stage Stage, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = make(map[Stage]error)
	}
	r.failures[stage] = err
}

// Err returns the failure recorded for stage, if any.
func (r *FailureRecorder) Err(stage Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[stage]
}

// HasFailures reports whether any stage failed.
func (r *FailureRecorder) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures) > 0
}
