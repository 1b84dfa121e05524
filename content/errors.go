package content

import "errors"

var (
	// ErrPostRepositoryRequired is returned when a post repository is not provided.
	ErrPostRepositoryRequired = errors.New("post repository required")

	// ErrMediaRepositoryRequired is returned when a media repository is not provided.
	ErrMediaRepositoryRequired = errors.New("media repository required")

	// ErrEmbeddingUpdaterRequired is returned when an embedding updater is not provided.
	ErrEmbeddingUpdaterRequired = errors.New("embedding updater required")
)
