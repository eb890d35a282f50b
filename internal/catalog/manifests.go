// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// InsertManifest records a manifest's chunk list. Manifests are
// immutable like objects, so a digest already present is a no-op
// rather than an error (mirrors the object store's put idempotence).
func (c *Catalog) InsertManifest(ctx context.Context, digest objectstore.Hash, manifest *objectstore.Manifest) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.withTransaction(conn, func() error {
		var present bool
		if err := sqlitex.Execute(conn, "SELECT 1 FROM manifests WHERE digest = ?", &sqlitex.ExecOptions{
			Args: []any{objectstore.FormatHash(digest)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				present = true
				return nil
			},
		}); err != nil {
			return latticeerr.Catalog("checking manifest existence: %w", err)
		}
		if present {
			return nil
		}

		if err := sqlitex.Execute(conn,
			"INSERT INTO manifests (digest, total_size, chunk_count) VALUES (?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{objectstore.FormatHash(digest), int64(manifest.TotalSize), len(manifest.Chunks)},
			},
		); err != nil {
			return latticeerr.Catalog("inserting manifest %s: %w", objectstore.FormatHash(digest), err)
		}

		for _, entry := range manifest.Chunks {
			if err := sqlitex.Execute(conn,
				"INSERT INTO manifest_chunks (manifest_digest, chunk_index, chunk_digest, chunk_size) VALUES (?, ?, ?, ?)",
				&sqlitex.ExecOptions{
					Args: []any{
						objectstore.FormatHash(digest),
						int64(entry.Index),
						objectstore.FormatHash(entry.Digest),
						int64(entry.Size),
					},
				},
			); err != nil {
				return latticeerr.Catalog("inserting manifest_chunks for %s: %w", objectstore.FormatHash(digest), err)
			}
		}
		return nil
	})
}

// GetManifest returns the manifest for digest. ok is false when digest
// has no manifest row — per spec.md §3, that means digest names a bare
// chunk, which is how the catalog (not the object store) distinguishes
// the two kinds of object.
func (c *Catalog) GetManifest(ctx context.Context, digest objectstore.Hash) (*objectstore.Manifest, bool, error) {
	conn, release, err := c.take(ctx)
	if err != nil {
		return nil, false, err
	}
	defer release()

	var totalSize uint64
	var chunkCount int
	var present bool
	err = sqlitex.Execute(conn, "SELECT total_size, chunk_count FROM manifests WHERE digest = ?", &sqlitex.ExecOptions{
		Args: []any{objectstore.FormatHash(digest)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			present = true
			totalSize = uint64(stmt.ColumnInt64(0))
			chunkCount = int(stmt.ColumnInt64(1))
			return nil
		},
	})
	if err != nil {
		return nil, false, latticeerr.Catalog("reading manifest %s: %w", objectstore.FormatHash(digest), err)
	}
	if !present {
		return nil, false, nil
	}

	entries := make([]objectstore.ManifestChunkEntry, 0, chunkCount)
	var scanErr error
	err = sqlitex.Execute(conn,
		"SELECT chunk_index, chunk_digest, chunk_size FROM manifest_chunks WHERE manifest_digest = ? ORDER BY chunk_index",
		&sqlitex.ExecOptions{
			Args: []any{objectstore.FormatHash(digest)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				chunkDigest, err := objectstore.ParseHash(stmt.ColumnText(1))
				if err != nil {
					scanErr = latticeerr.Catalog("corrupt manifest_chunks row: %w", err)
					return scanErr
				}
				entries = append(entries, objectstore.ManifestChunkEntry{
					Index:  uint32(stmt.ColumnInt64(0)),
					Digest: chunkDigest,
					Size:   uint32(stmt.ColumnInt64(2)),
				})
				return nil
			},
		},
	)
	if err != nil {
		return nil, false, latticeerr.Catalog("reading manifest_chunks for %s: %w", objectstore.FormatHash(digest), err)
	}
	if scanErr != nil {
		return nil, false, scanErr
	}

	return &objectstore.Manifest{TotalSize: totalSize, Chunks: entries}, true, nil
}
