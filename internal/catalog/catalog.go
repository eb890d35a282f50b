// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog implements lattice's metadata catalog: the
// transactional store for staging entries, the commit graph, branch
// refs, and the manifest index (spec.md §4.D). It is backed by SQLite
// through internal/sqlitepool, satisfying the "WAL-style journaling or
// equivalent" requirement literally.
package catalog

import (
	"context"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/sqlitepool"
)

// DefaultBranch is the branch init creates HEAD pointing at.
const DefaultBranch = "main"

// catalogPoolSize bounds concurrent catalog connections. A serve process
// answers GetCommit, GetManifest, PutCommit, and PutChunk RPCs from
// however many peers are fetching or pushing at once, so this tracks
// orchestrator.DefaultFetchConcurrency rather than sqlitepool's own
// fixed default (catalog can't import internal/orchestrator without a
// cycle through internal/repo, hence the duplicated constant rather
// than a shared one).
const catalogPoolSize = 8

// Catalog is the metadata catalog for one repository.
type Catalog struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens (creating if absent) the catalog database at path and
// ensures its schema exists. It does not seed the default branch or
// HEAD row — callers that are initializing a fresh repository must
// call EnsureInitialized afterward.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     path,
		PoolSize: catalogPoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, latticeerr.Catalog("opening catalog %s: %w", path, err)
	}
	return &Catalog{pool: pool, logger: logger}, nil
}

// Close releases the catalog's connections.
func (c *Catalog) Close() error {
	if err := c.pool.Close(); err != nil {
		return latticeerr.Catalog("closing catalog: %w", err)
	}
	return nil
}

// EnsureInitialized seeds the default branch and HEAD row if the
// catalog has no HEAD yet. Safe to call on an already-initialized
// catalog (no-op).
func (c *Catalog) EnsureInitialized(ctx context.Context) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return latticeerr.Catalog("%w", err)
	}
	defer c.pool.Put(conn)

	return c.withTransaction(conn, func() error {
		var headCount int64
		if err := sqlitex.Execute(conn, "SELECT count(*) FROM head", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				headCount = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
			return latticeerr.Catalog("counting head rows: %w", err)
		}
		if headCount > 0 {
			return nil
		}

		if err := sqlitex.Execute(conn,
			"INSERT INTO branches (name, head_commit_digest) VALUES (?, NULL)",
			&sqlitex.ExecOptions{Args: []any{DefaultBranch}},
		); err != nil {
			return latticeerr.Catalog("seeding default branch: %w", err)
		}
		if err := sqlitex.Execute(conn,
			"INSERT INTO head (id, branch_name) VALUES (0, ?)",
			&sqlitex.ExecOptions{Args: []any{DefaultBranch}},
		); err != nil {
			return latticeerr.Catalog("seeding HEAD: %w", err)
		}
		return nil
	})
}

// withTransaction runs fn inside an immediate transaction, committing
// on success and rolling back if fn (or the commit itself) fails.
func (c *Catalog) withTransaction(conn *sqlite.Conn, fn func() error) (err error) {
	endTransaction, txErr := sqlitex.ImmediateTransaction(conn)
	if txErr != nil {
		return latticeerr.Catalog("beginning transaction: %w", txErr)
	}
	defer endTransaction(&err)
	return fn()
}

// take is a small helper shared by the per-concern files in this
// package (staging.go, commits.go, branches.go, manifests.go,
// resolve.go) to reduce Take/Put boilerplate at every call site.
func (c *Catalog) take(ctx context.Context) (*sqlite.Conn, func(), error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, nil, latticeerr.Catalog("%w", err)
	}
	return conn, func() { c.pool.Put(conn) }, nil
}
