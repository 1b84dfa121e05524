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

// Package sqlite implements the storage repositories on a relational SQLite
// database. Media rows reference their post with ON DELETE CASCADE.
package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"github.com/poiesic/folio/storage"
	_ "modernc.org/sqlite" // SQLite driver
)

const driverName = "sqlite"

//go:embed schema.sql
var schema string

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Backend wraps a SQLite database handle.
type Backend struct {
	db     *sqlx.DB
	logger *slog.Logger
	closed atomic.Bool
}

// OpenBackend opens or creates the SQLite database file at path and applies
// the schema. With inMemory set, path is ignored and the database lives on a
// single private connection. A nil logger uses slog.Default().
func OpenBackend(path string, inMemory bool, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sqlite")

	var dsn string
	if inMemory {
		dsn = ":memory:"
	} else {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if inMemory {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Debug("sqlite database opened", "path", path, "inMemory", inMemory)
	return &Backend{db: db, logger: logger}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.closed.Load()
}

// WithTx runs fn in a transaction, committing when fn returns nil.
func (b *Backend) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if b.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// NewRepositories opens the database at path and returns post and media
// repositories sharing it. Caller must close both repos and the backend.
func NewRepositories(path string, logger *slog.Logger) (storage.PostRepository, storage.MediaRepository, *Backend, error) {
	backend, err := OpenBackend(path, false, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return newRepositories(backend)
}

// NewMemoryRepositories creates in-memory post and media repositories for testing.
func NewMemoryRepositories() (storage.PostRepository, storage.MediaRepository, *Backend, error) {
	backend, err := OpenBackend("", true, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return newRepositories(backend)
}

func newRepositories(backend *Backend) (storage.PostRepository, storage.MediaRepository, *Backend, error) {
	posts, err := NewPostRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	media, err := NewMediaRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	return posts, media, backend, nil
}
