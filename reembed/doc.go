// Package reembed keeps stored post embeddings up to date.
//
// UpdatePostEmbedding refreshes one post and reports success as a bool.
// UpdateAllEmbeddings walks every post in batches, optionally rate limited,
// retrying transient write failures with exponential backoff and skipping
// posts that still fail. Trigger runs the bulk job on a worker pool so that
// runs never overlap.
package reembed
