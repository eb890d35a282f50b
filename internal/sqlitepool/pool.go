// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// DefaultPoolSize is used when a Config leaves PoolSize unset. Unlike a
// host-scaled default, this is fixed: a lattice catalog is a per-repository
// SQLite file opened by one CLI invocation (or one serve process) at a
// time, not a multi-tenant service sized to the machine it happens to run
// on. The number only needs to cover the catalog's own worst case —
// concurrent peer RPCs landing on a running serve process — not the host's
// core count.
const DefaultPoolSize = 8

// Config holds the parameters for opening a connection pool. Path is
// required; everything else has a default.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must already exist. The file is created if
	// absent.
	Path string

	// PoolSize is the number of pooled connections. Zero or negative
	// defaults to DefaultPoolSize. The catalog serializes writes
	// regardless of pool size (SQLite allows one writer); a larger
	// pool only helps concurrent readers — in lattice's case, the
	// concurrent GetCommit/GetManifest/PutChunk calls a serve process
	// answers while multiple peers fetch or push at once.
	PoolSize int

	// Logger receives pool lifecycle messages. A nil Logger discards
	// them.
	Logger *slog.Logger

	// OnConnect runs once per connection, after the standard pragmas,
	// for schema creation or other one-time setup. A returned error
	// discards the connection and propagates to the caller of Take.
	OnConnect func(conn *sqlite.Conn) error
}

// Pool is a fixed-size pool of SQLite connections carrying lattice's
// standard pragma set. It wraps sqlitex.Pool and exposes the same
// Take/Put shape.
//
// Pool is safe for concurrent use; individual connections are not —
// each caller takes its own connection and returns it when done.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open creates a connection pool, applying the standard pragmas to
// every connection as it's first used. The database file is created
// if it does not already exist.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, cfg.OnConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite pool opened", "path", cfg.Path, "pool_size", poolSize)

	return &Pool{inner: inner, logger: logger, path: cfg.Path}, nil
}

// Take borrows a connection, blocking until one is available or ctx is
// done. The caller must Put it back, typically via defer.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Safe to call with nil.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close closes every connection, blocking until all borrowed
// connections are returned.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

func prepareConnection(conn *sqlite.Conn, onConnect func(*sqlite.Conn) error) error {
	// cache_size and mmap_size are sized for a catalog, not a general
	// service database: a lattice catalog holds staging rows, commit and
	// branch metadata, and the manifest index (spec.md §4.D) — chunk and
	// object bytes live in the content store, never in SQLite — so the
	// working set here stays small regardless of how large the objects a
	// repository tracks are.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=OFF",
		"PRAGMA cache_size=-2048",
		"PRAGMA mmap_size=67108864",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}
	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("sqlitepool: OnConnect: %w", err)
		}
	}
	return nil
}
