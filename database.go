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

package folio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/ai/openai"
	"github.com/poiesic/folio/config"
	"github.com/poiesic/folio/content"
	"github.com/poiesic/folio/embedding"
	"github.com/poiesic/folio/reembed"
	"github.com/poiesic/folio/search"
	"github.com/poiesic/folio/storage"
	"github.com/poiesic/folio/storage/badger"
	"github.com/poiesic/folio/storage/sqlite"
)

// Database bundles a post store with the search, maintenance and content
// services that run over it.
type Database struct {
	closeBackend func() error
	posts        storage.PostRepository
	media        storage.MediaRepository
	generator    *embedding.Generator
	reembedder   *reembed.Reembedder
	logger       *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	backend       string
	inMemory      bool
	aiConfig      *ai.Config
	embedder      ai.Embedder
	reembedConfig *reembed.Config
	progress      io.Writer
	logger        *slog.Logger
}

// WithBackend selects the store: "badger" (default) or "sqlite".
func WithBackend(backend string) DatabaseOption {
	return func(o *databaseOptions) {
		o.backend = backend
	}
}

// WithInMemory keeps all data in memory; the path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithAIConfig selects and configures the embedding model.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithEmbedder uses embedder directly, ignoring any AI config.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithReembedConfig configures embedding maintenance.
func WithReembedConfig(cfg *reembed.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.reembedConfig = cfg
	}
}

// WithProgress sets where bulk maintenance writes progress lines.
func WithProgress(w io.Writer) DatabaseOption {
	return func(o *databaseOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the store at path and wires the services around it.
func NewDatabase(path string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		backend:  config.BackendBadger,
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	embedder, err := newEmbedder(options)
	if err != nil {
		return nil, err
	}

	posts, media, closeBackend, err := openStore(path, options)
	if err != nil {
		return nil, err
	}

	generator := embedding.NewGenerator(embedder, embedding.WithLogger(options.logger))

	reembedder, err := reembed.NewReembedder(posts, generator, options.reembedConfig, options.progress,
		reembed.WithLogger(options.logger))
	if err != nil {
		media.Close()
		posts.Close()
		closeBackend()
		return nil, err
	}

	return &Database{
		closeBackend: closeBackend,
		posts:        posts,
		media:        media,
		generator:    generator,
		reembedder:   reembedder,
		logger:       options.logger,
	}, nil
}

func newEmbedder(options *databaseOptions) (ai.Embedder, error) {
	if options.embedder != nil {
		return options.embedder, nil
	}
	cfg := options.aiConfig
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Provider == ai.ProviderOpenAI {
		return openai.NewEmbedder(cfg)
	}
	return embedding.HashEmbedder{}, nil
}

func openStore(path string, options *databaseOptions) (storage.PostRepository, storage.MediaRepository, func() error, error) {
	switch strings.ToLower(options.backend) {
	case config.BackendBadger, "":
		var (
			posts   storage.PostRepository
			media   storage.MediaRepository
			backend *badger.Backend
			err     error
		)
		if options.inMemory {
			posts, media, backend, err = badger.NewMemoryRepositories()
		} else {
			posts, media, backend, err = badger.NewRepositories(path, options.logger)
		}
		if err != nil {
			return nil, nil, nil, err
		}
		return posts, media, backend.Close, nil
	case config.BackendSQLite:
		var (
			posts   storage.PostRepository
			media   storage.MediaRepository
			backend *sqlite.Backend
			err     error
		)
		if options.inMemory {
			posts, media, backend, err = sqlite.NewMemoryRepositories()
		} else {
			posts, media, backend, err = sqlite.NewRepositories(path, options.logger)
		}
		if err != nil {
			return nil, nil, nil, err
		}
		return posts, media, backend.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", options.backend)
	}
}

// Close releases the maintenance pool, then the repositories and the store.
func (db *Database) Close() error {
	db.reembedder.Release()

	var errs []error
	if err := db.media.Close(); err != nil {
		db.logger.Error("error closing media repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.posts.Close(); err != nil {
		db.logger.Error("error closing post repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.closeBackend(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) PostRepository() storage.PostRepository {
	return db.posts
}

func (db *Database) MediaRepository() storage.MediaRepository {
	return db.media
}

func (db *Database) Generator() *embedding.Generator {
	return db.generator
}

func (db *Database) Reembedder() *reembed.Reembedder {
	return db.reembedder
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.posts, db.media, db.generator, opts...)
}

func (db *Database) NewContentService(opts ...content.Option) (*content.Service, error) {
	opts = append([]content.Option{content.WithLogger(db.logger)}, opts...)
	return content.NewService(db.posts, db.media, db.reembedder, opts...)
}
