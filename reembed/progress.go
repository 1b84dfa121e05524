package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker tracks and reports progress of embedding maintenance.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	updated        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr); nil discards
// total: total number of posts to process
// reportInterval: report progress every N posts
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	if reportInterval <= 0 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.updated = 0
	p.failed = 0
	p.lastReported = 0
}

// Record adds the outcome of a batch.
func (p *ProgressTracker) Record(updated, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.updated += updated
	p.failed += failed

	if p.done()-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.done()
	}
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Counts returns the posts updated and failed so far.
func (p *ProgressTracker) Counts() (updated, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updated, p.failed
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// done must be called with the lock held.
func (p *ProgressTracker) done() int {
	return min(p.updated+p.failed, p.total)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	done := p.done()
	rate := float64(done) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %d failed - %.1f posts/s",
		done, p.total, percentage, p.failed, rate)
}
