// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

// schema is the catalog's DDL, applied once per connection via
// sqlitepool's OnConnect hook. Every table from spec.md §4.D lives in
// this one file; digests are stored as their 64-character lowercase
// hex form rather than as BLOBs, so prefix resolution is a plain
// LIKE query and every row is legible with the sqlite3 CLI.
const schema = `
CREATE TABLE IF NOT EXISTS staged_files (
	path      TEXT PRIMARY KEY,
	digest    TEXT NOT NULL,
	size      INTEGER NOT NULL,
	staged_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commits (
	digest        TEXT PRIMARY KEY,
	message       TEXT NOT NULL,
	timestamp     TEXT NOT NULL,
	parent_digest TEXT
);

CREATE INDEX IF NOT EXISTS idx_commits_parent ON commits(parent_digest);

CREATE TABLE IF NOT EXISTS commit_files (
	commit_digest TEXT NOT NULL,
	file_digest   TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	file_size     INTEGER NOT NULL,
	PRIMARY KEY (commit_digest, file_path)
);

CREATE TABLE IF NOT EXISTS manifests (
	digest      TEXT PRIMARY KEY,
	total_size  INTEGER NOT NULL,
	chunk_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS manifest_chunks (
	manifest_digest TEXT NOT NULL,
	chunk_index     INTEGER NOT NULL,
	chunk_digest    TEXT NOT NULL,
	chunk_size      INTEGER NOT NULL,
	PRIMARY KEY (manifest_digest, chunk_index)
);

CREATE TABLE IF NOT EXISTS branches (
	name               TEXT PRIMARY KEY,
	head_commit_digest TEXT
);

CREATE TABLE IF NOT EXISTS head (
	id          INTEGER PRIMARY KEY CHECK (id = 0),
	branch_name TEXT NOT NULL
);
`
