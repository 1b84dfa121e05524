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

package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/embedding"
	"github.com/poiesic/folio/storage"
	"golang.org/x/time/rate"
)

// Config holds configuration for embedding maintenance.
type Config struct {
	// BatchSize is the number of posts handled per batch
	BatchSize int

	// ReportInterval is how often to report progress (number of posts)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding write
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// RateLimit caps posts per second during a bulk run; 0 disables pacing
	RateLimit float64

	// PoolSize is the number of bulk runs Trigger allows at once
	PoolSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		RateLimit:      0,
		PoolSize:       1,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	case c.ReportInterval <= 0:
		return fmt.Errorf("%w: report interval must be positive", ErrInvalidConfig)
	case c.MaxRetries <= 0:
		return fmt.Errorf("%w: max retries must be positive", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	case c.PoolSize <= 0:
		return fmt.Errorf("%w: pool size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Summary describes a finished bulk run.
type Summary struct {
	Total   int
	Updated int
	Failed  int
	Elapsed time.Duration
}

// Reembedder keeps stored post embeddings in step with post text.
type Reembedder struct {
	posts     storage.PostRepository
	generator *embedding.Generator
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	pool      *ants.Pool
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr); nil discards
func NewReembedder(posts storage.PostRepository, generator *embedding.Generator, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if posts == nil {
		return nil, ErrPostRepositoryRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		posts:     posts,
		generator: generator,
		config:    config,
		progress:  progress,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "reembedder")

	pool, err := ants.NewPool(config.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	r.pool = pool

	return r, nil
}

// UpdatePostEmbedding computes the embedding of title and description and
// stores it on the post. It reports whether the write succeeded; failures are
// logged, never returned. A missing post is not retried.
func (r *Reembedder) UpdatePostEmbedding(ctx context.Context, postID, title, description string) bool {
	if strings.TrimSpace(postID) == "" {
		r.logger.Error("cannot update embedding without a post id")
		return false
	}

	vector := r.generator.EmbedPost(ctx, title, description)

	err := RetryWithBackoff(ctx, func() error {
		err := r.posts.UpdateEmbedding(ctx, postID, vector)
		if errors.Is(err, storage.ErrNotFound) {
			return Permanent(err)
		}
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		r.logger.Error("failed to update post embedding", "post", postID, "err", err)
		return false
	}

	r.logger.Debug("updated post embedding", "post", postID)
	return true
}

// UpdateAllEmbeddings recomputes the embedding of every post, newest first.
// A failing post is logged and skipped. Progress lines go to the progress
// writer and the run ends with a summary log. Cancellation stops the run
// between posts.
func (r *Reembedder) UpdateAllEmbeddings(ctx context.Context) Summary {
	iterator := NewPostIterator(r.posts, r.config.BatchSize)
	posts, err := iterator.Load(ctx)
	if err != nil {
		r.logger.Error("failed to list posts for embedding maintenance", "err", err)
		return Summary{}
	}

	summary := Summary{Total: len(posts)}
	if len(posts) == 0 {
		fmt.Fprintf(r.progress, "No posts found (0 posts)\n")
		r.logger.Info("embedding maintenance complete", "total", 0, "updated", 0, "failed", 0)
		return summary
	}

	fmt.Fprintf(r.progress, "Reembedding %d posts (batch size: %d)\n", len(posts), r.config.BatchSize)

	var limiter *rate.Limiter
	if r.config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.config.RateLimit), 1)
	}
	processor := newBatchProcessor(r.UpdatePostEmbedding, limiter)

	tracker := NewProgressTracker(r.progress, len(posts), r.config.ReportInterval)
	tracker.Start()

	err = iterator.forEachBatch(ctx, posts, func(batch []*core.Post) error {
		updated, failed, err := processor.Process(ctx, batch)
		tracker.Record(updated, failed)
		return err
	})
	tracker.Finish()

	summary.Updated, summary.Failed = tracker.Counts()
	summary.Elapsed = tracker.Elapsed()

	if err != nil {
		r.logger.Warn("embedding maintenance interrupted", "err", err,
			"total", summary.Total, "updated", summary.Updated, "failed", summary.Failed)
		return summary
	}

	r.logger.Info("embedding maintenance complete",
		"total", summary.Total, "updated", summary.Updated, "failed", summary.Failed,
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	return summary
}

// Trigger starts UpdateAllEmbeddings in the background and returns a channel
// closed when it finishes. It returns ErrJobRunning when PoolSize runs are
// already in progress.
func (r *Reembedder) Trigger(ctx context.Context) (<-chan struct{}, error) {
	done := make(chan struct{})
	err := r.pool.Submit(func() {
		defer close(done)
		r.UpdateAllEmbeddings(ctx)
	})
	if errors.Is(err, ants.ErrPoolOverload) {
		return nil, ErrJobRunning
	}
	if err != nil {
		return nil, err
	}
	return done, nil
}

// Release frees the background pool. Runs already started complete.
func (r *Reembedder) Release() {
	r.pool.Release()
}
