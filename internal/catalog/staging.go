// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// StageFile upserts a staging entry for path; re-adding the same path
// overwrites its digest, size, and staged_at (spec.md §3: "path is the
// primary key; re-adding overwrites").
func (c *Catalog) StageFile(ctx context.Context, path string, digest objectstore.Hash, size uint64, stagedAt time.Time) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = sqlitex.Execute(conn,
		`INSERT INTO staged_files (path, digest, size, staged_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET digest = excluded.digest, size = excluded.size, staged_at = excluded.staged_at`,
		&sqlitex.ExecOptions{
			Args: []any{path, objectstore.FormatHash(digest), int64(size), stagedAt.UTC().Format(time.RFC3339Nano)},
		},
	)
	if err != nil {
		return latticeerr.Catalog("staging %s: %w", path, err)
	}
	return nil
}

// ListStagedFiles returns every staged entry, ordered by path.
func (c *Catalog) ListStagedFiles(ctx context.Context) ([]StagedFile, error) {
	conn, release, err := c.take(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var entries []StagedFile
	var scanErr error
	err = sqlitex.Execute(conn,
		"SELECT path, digest, size, staged_at FROM staged_files ORDER BY path",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, err := scanStagedFile(stmt)
				if err != nil {
					scanErr = err
					return err
				}
				entries = append(entries, entry)
				return nil
			},
		},
	)
	if err != nil {
		return nil, latticeerr.Catalog("listing staged files: %w", err)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return entries, nil
}

// ClearStagedFiles deletes every staging entry. Called by commit once
// the snapshot has been written.
func (c *Catalog) ClearStagedFiles(ctx context.Context) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := sqlitex.Execute(conn, "DELETE FROM staged_files", nil); err != nil {
		return latticeerr.Catalog("clearing staged files: %w", err)
	}
	return nil
}

func scanStagedFile(stmt *sqlite.Stmt) (StagedFile, error) {
	digest, err := objectstore.ParseHash(stmt.ColumnText(1))
	if err != nil {
		return StagedFile{}, latticeerr.Catalog("corrupt staged_files row: %w", err)
	}
	stagedAt, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(3))
	if err != nil {
		return StagedFile{}, latticeerr.Catalog("corrupt staged_files row: %w", err)
	}
	return StagedFile{
		Path:     stmt.ColumnText(0),
		Digest:   digest,
		Size:     uint64(stmt.ColumnInt64(2)),
		StagedAt: stagedAt,
	}, nil
}
