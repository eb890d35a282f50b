// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides lattice's standard SQLite connection
// pool for the metadata catalog.
//
// The catalog is a single-file SQLite database; every goroutine that
// touches it borrows a connection from this pool, does its work inside
// an explicit transaction, and returns the connection. The pool wraps
// zombiezen.com/go/sqlite with production defaults: WAL journal mode,
// NORMAL synchronous for crash durability without per-commit fsync
// cost, memory-mapped reads, and a busy timeout so concurrent writers
// from other processes wait instead of failing immediately — the
// "WAL-style journaling" the catalog's concurrent-access requirement
// calls for.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: concurrent readers never block the single
//     writer and vice versa.
//   - synchronous=NORMAL: transactions survive process crashes; not
//     durable across a power loss, which is an acceptable trade for a
//     local catalog whose objects are reproducible from the object
//     store and from peers.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock across
//     processes sharing the same repository, instead of failing with
//     SQLITE_BUSY immediately.
//   - foreign_keys=OFF: the catalog enforces its own referential
//     invariants (I1–I6) at the transaction layer rather than through
//     FK cascades, since several of them (digest existing in the
//     object store, not another table) aren't expressible as a SQL
//     foreign key at all.
//   - cache_size=-2048: 2 MB page cache per connection, sized for a
//     catalog holding staging rows and commit/branch/manifest metadata,
//     not the chunk and object bytes that live in the content store.
//   - mmap_size=67108864: 64 MB memory-mapped reads, same reasoning.
//   - temp_store=MEMORY: temporary tables and indexes in memory.
//
// # Design
//
// This package is deliberately thin: apply the pragmas, hand back the
// underlying zombiezen types, and get out of the way. Catalog code
// writes SQL directly and manages transactions with
// sqlitex.ImmediateTransaction rather than going through a query
// builder.
package sqlitepool
