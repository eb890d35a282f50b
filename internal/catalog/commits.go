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

// InsertCommit inserts a commit row and its file_set snapshot in a
// single transaction (all-or-nothing, spec.md §4.D). Fails with
// latticeerr.KindNotFound if rec.Parent is set but does not name an
// existing commit (invariant I3).
func (c *Catalog) InsertCommit(ctx context.Context, rec CommitRecord) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.withTransaction(conn, func() error {
		if rec.Parent != nil {
			exists, err := commitExists(conn, *rec.Parent)
			if err != nil {
				return err
			}
			if !exists {
				return latticeerr.NotFound("parent commit %s does not exist", objectstore.FormatHash(*rec.Parent))
			}
		}

		var parentArg any
		if rec.Parent != nil {
			parentArg = objectstore.FormatHash(*rec.Parent)
		}
		if err := sqlitex.Execute(conn,
			"INSERT INTO commits (digest, message, timestamp, parent_digest) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{
					objectstore.FormatHash(rec.Digest),
					rec.Message,
					rec.Timestamp.UTC().Format(time.RFC3339Nano),
					parentArg,
				},
			},
		); err != nil {
			return latticeerr.Catalog("inserting commit %s: %w", objectstore.FormatHash(rec.Digest), err)
		}

		for _, f := range rec.Files {
			if err := sqlitex.Execute(conn,
				"INSERT INTO commit_files (commit_digest, file_digest, file_path, file_size) VALUES (?, ?, ?, ?)",
				&sqlitex.ExecOptions{
					Args: []any{
						objectstore.FormatHash(rec.Digest),
						objectstore.FormatHash(f.Digest),
						f.Path,
						int64(f.Size),
					},
				},
			); err != nil {
				return latticeerr.Catalog("inserting commit_files for %s: %w", objectstore.FormatHash(rec.Digest), err)
			}
		}
		return nil
	})
}

// GetCommit returns a commit and its file_set. Returns
// latticeerr.KindNotFound if digest is not a commit.
func (c *Catalog) GetCommit(ctx context.Context, digest objectstore.Hash) (CommitRecord, error) {
	conn, release, err := c.take(ctx)
	if err != nil {
		return CommitRecord{}, err
	}
	defer release()

	rec, ok, err := scanCommitRow(conn, digest)
	if err != nil {
		return CommitRecord{}, err
	}
	if !ok {
		return CommitRecord{}, latticeerr.NotFound("commit %s not found", objectstore.FormatHash(digest))
	}

	files, err := listCommitFiles(conn, digest)
	if err != nil {
		return CommitRecord{}, err
	}
	rec.Files = files
	return rec, nil
}

// CommitsFrom walks parent links starting at start (inclusive),
// newest-first, stopping at the first commit with no parent. File
// sets are not populated (callers that need them use GetCommit) —
// this keeps log/ListCommits traversal to one query per commit instead
// of two.
func (c *Catalog) CommitsFrom(ctx context.Context, start objectstore.Hash) ([]CommitRecord, error) {
	conn, release, err := c.take(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var records []CommitRecord
	current := start
	for {
		rec, ok, err := scanCommitRow(conn, current)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, latticeerr.NotFound("commit %s not found", objectstore.FormatHash(current))
		}
		records = append(records, rec)
		if rec.Parent == nil {
			break
		}
		current = *rec.Parent
	}
	return records, nil
}

// CommitsReachableFromOptional is like CommitsFrom but returns an empty
// slice instead of an error when start is nil (an unborn
// branch with no commits yet), matching log()'s behavior on a fresh
// branch.
func (c *Catalog) CommitsReachableFromOptional(ctx context.Context, start *objectstore.Hash) ([]CommitRecord, error) {
	if start == nil {
		return nil, nil
	}
	return c.CommitsFrom(ctx, *start)
}

func commitExists(conn *sqlite.Conn, digest objectstore.Hash) (bool, error) {
	var found bool
	err := sqlitex.Execute(conn, "SELECT 1 FROM commits WHERE digest = ?", &sqlitex.ExecOptions{
		Args: []any{objectstore.FormatHash(digest)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	if err != nil {
		return false, latticeerr.Catalog("checking commit existence: %w", err)
	}
	return found, nil
}

func scanCommitRow(conn *sqlite.Conn, digest objectstore.Hash) (CommitRecord, bool, error) {
	var rec CommitRecord
	var found bool
	var scanErr error

	err := sqlitex.Execute(conn,
		"SELECT digest, message, timestamp, parent_digest FROM commits WHERE digest = ?",
		&sqlitex.ExecOptions{
			Args: []any{objectstore.FormatHash(digest)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				d, err := objectstore.ParseHash(stmt.ColumnText(0))
				if err != nil {
					scanErr = latticeerr.Catalog("corrupt commits row: %w", err)
					return scanErr
				}
				ts, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(2))
				if err != nil {
					scanErr = latticeerr.Catalog("corrupt commits row: %w", err)
					return scanErr
				}
				rec = CommitRecord{
					Digest:    d,
					Message:   stmt.ColumnText(1),
					Timestamp: ts,
				}
				if !stmt.ColumnIsNull(3) {
					parent, err := objectstore.ParseHash(stmt.ColumnText(3))
					if err != nil {
						scanErr = latticeerr.Catalog("corrupt commits row: %w", err)
						return scanErr
					}
					rec.Parent = &parent
				}
				return nil
			},
		},
	)
	if err != nil {
		return CommitRecord{}, false, latticeerr.Catalog("reading commit %s: %w", objectstore.FormatHash(digest), err)
	}
	if scanErr != nil {
		return CommitRecord{}, false, scanErr
	}
	return rec, found, nil
}

func listCommitFiles(conn *sqlite.Conn, commitDigest objectstore.Hash) ([]CommitFile, error) {
	var files []CommitFile
	var scanErr error
	err := sqlitex.Execute(conn,
		"SELECT file_path, file_digest, file_size FROM commit_files WHERE commit_digest = ? ORDER BY file_path",
		&sqlitex.ExecOptions{
			Args: []any{objectstore.FormatHash(commitDigest)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				digest, err := objectstore.ParseHash(stmt.ColumnText(1))
				if err != nil {
					scanErr = latticeerr.Catalog("corrupt commit_files row: %w", err)
					return scanErr
				}
				files = append(files, CommitFile{
					Path:   stmt.ColumnText(0),
					Digest: digest,
					Size:   uint64(stmt.ColumnInt64(2)),
				})
				return nil
			},
		},
	)
	if err != nil {
		return nil, latticeerr.Catalog("listing commit_files for %s: %w", objectstore.FormatHash(commitDigest), err)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return files, nil
}
