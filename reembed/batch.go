package reembed

import (
	"context"

	"github.com/poiesic/folio/core"
	"golang.org/x/time/rate"
)

// updateFunc refreshes one post's embedding and reports success.
type updateFunc func(ctx context.Context, postID, title, description string) bool

// BatchProcessor refreshes embeddings for a batch of posts one at a time.
// A failed post is counted and skipped; it never aborts the batch.
type BatchProcessor struct {
	update  updateFunc
	limiter *rate.Limiter
}

// newBatchProcessor creates a batch processor. A nil limiter means no pacing.
func newBatchProcessor(update updateFunc, limiter *rate.Limiter) *BatchProcessor {
	return &BatchProcessor{
		update:  update,
		limiter: limiter,
	}
}

// Process updates each post in the batch. It returns the number of posts
// updated and failed, and a context error if the limiter wait was cut short.
// Posts not attempted because of cancellation count as neither.
func (bp *BatchProcessor) Process(ctx context.Context, posts []*core.Post) (updated, failed int, err error) {
	for _, post := range posts {
		if bp.limiter != nil {
			if err := bp.limiter.Wait(ctx); err != nil {
				return updated, failed, err
			}
		}
		if bp.update(ctx, post.ID, post.Title, post.Description) {
			updated++
		} else {
			failed++
		}
	}
	return updated, failed, nil
}
