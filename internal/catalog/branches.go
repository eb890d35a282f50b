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

// CreateBranch creates a branch named name pointing at head. Fails
// with latticeerr.KindBranchExists if name is already taken.
func (c *Catalog) CreateBranch(ctx context.Context, name string, head *objectstore.Hash) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.withTransaction(conn, func() error {
		existing, err := branchExists(conn, name)
		if err != nil {
			return err
		}
		if existing {
			return latticeerr.BranchExists("branch %q already exists", name)
		}
		var headArg any
		if head != nil {
			headArg = objectstore.FormatHash(*head)
		}
		if err := sqlitex.Execute(conn,
			"INSERT INTO branches (name, head_commit_digest) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{name, headArg}},
		); err != nil {
			return latticeerr.Catalog("creating branch %q: %w", name, err)
		}
		return nil
	})
}

// GetBranch returns the branch named name. ok is false if no such
// branch exists.
func (c *Catalog) GetBranch(ctx context.Context, name string) (Branch, bool, error) {
	conn, release, err := c.take(ctx)
	if err != nil {
		return Branch{}, false, err
	}
	defer release()
	return scanBranchRow(conn, name)
}

// ListBranches returns every branch, ordered by name.
func (c *Catalog) ListBranches(ctx context.Context) ([]Branch, error) {
	conn, release, err := c.take(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var branches []Branch
	var scanErr error
	err = sqlitex.Execute(conn,
		"SELECT name, head_commit_digest FROM branches ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				b, err := scanBranch(stmt)
				if err != nil {
					scanErr = err
					return err
				}
				branches = append(branches, b)
				return nil
			},
		},
	)
	if err != nil {
		return nil, latticeerr.Catalog("listing branches: %w", err)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return branches, nil
}

// DeleteBranch removes a branch. Fails with latticeerr.KindUnknownBranch
// if it does not exist, or latticeerr.KindDeleteCurrentBranch if it is
// the branch HEAD currently names.
func (c *Catalog) DeleteBranch(ctx context.Context, name string) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.withTransaction(conn, func() error {
		existing, err := branchExists(conn, name)
		if err != nil {
			return err
		}
		if !existing {
			return latticeerr.UnknownBranch("branch %q does not exist", name)
		}
		head, err := readHead(conn)
		if err != nil {
			return err
		}
		if head == name {
			return latticeerr.DeleteCurrentBranch("cannot delete the checked-out branch %q", name)
		}
		if err := sqlitex.Execute(conn, "DELETE FROM branches WHERE name = ?", &sqlitex.ExecOptions{
			Args: []any{name},
		}); err != nil {
			return latticeerr.Catalog("deleting branch %q: %w", name, err)
		}
		return nil
	})
}

// UpdateBranchHead re-points name at head (used by commit, amend, and
// pull's fast-forward). Fails with latticeerr.KindUnknownBranch if
// name does not exist.
func (c *Catalog) UpdateBranchHead(ctx context.Context, name string, head objectstore.Hash) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.withTransaction(conn, func() error {
		existing, err := branchExists(conn, name)
		if err != nil {
			return err
		}
		if !existing {
			return latticeerr.UnknownBranch("branch %q does not exist", name)
		}
		if err := sqlitex.Execute(conn,
			"UPDATE branches SET head_commit_digest = ? WHERE name = ?",
			&sqlitex.ExecOptions{Args: []any{objectstore.FormatHash(head), name}},
		); err != nil {
			return latticeerr.Catalog("updating branch %q: %w", name, err)
		}
		return nil
	})
}

// GetHead returns the name of the currently checked-out branch.
func (c *Catalog) GetHead(ctx context.Context) (string, error) {
	conn, release, err := c.take(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return readHead(conn)
}

// SetHead moves HEAD to name. Fails with latticeerr.KindUnknownBranch
// if the branch does not exist.
func (c *Catalog) SetHead(ctx context.Context, name string) error {
	conn, release, err := c.take(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.withTransaction(conn, func() error {
		existing, err := branchExists(conn, name)
		if err != nil {
			return err
		}
		if !existing {
			return latticeerr.UnknownBranch("branch %q does not exist", name)
		}
		if err := sqlitex.Execute(conn,
			"UPDATE head SET branch_name = ? WHERE id = 0",
			&sqlitex.ExecOptions{Args: []any{name}},
		); err != nil {
			return latticeerr.Catalog("setting HEAD: %w", err)
		}
		return nil
	})
}

func branchExists(conn *sqlite.Conn, name string) (bool, error) {
	var found bool
	err := sqlitex.Execute(conn, "SELECT 1 FROM branches WHERE name = ?", &sqlitex.ExecOptions{
		Args: []any{name},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	if err != nil {
		return false, latticeerr.Catalog("checking branch existence: %w", err)
	}
	return found, nil
}

func readHead(conn *sqlite.Conn) (string, error) {
	var name string
	var found bool
	err := sqlitex.Execute(conn, "SELECT branch_name FROM head WHERE id = 0", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			name = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		return "", latticeerr.Catalog("reading HEAD: %w", err)
	}
	if !found {
		return "", latticeerr.Catalog("HEAD row is missing; repository was not initialized correctly")
	}
	return name, nil
}

func scanBranchRow(conn *sqlite.Conn, name string) (Branch, bool, error) {
	var b Branch
	var found bool
	var scanErr error
	err := sqlitex.Execute(conn,
		"SELECT name, head_commit_digest FROM branches WHERE name = ?",
		&sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				var err error
				b, err = scanBranch(stmt)
				if err != nil {
					scanErr = err
				}
				return err
			},
		},
	)
	if err != nil {
		return Branch{}, false, latticeerr.Catalog("reading branch %q: %w", name, err)
	}
	if scanErr != nil {
		return Branch{}, false, scanErr
	}
	return b, found, nil
}

func scanBranch(stmt *sqlite.Stmt) (Branch, error) {
	b := Branch{Name: stmt.ColumnText(0)}
	if !stmt.ColumnIsNull(1) {
		head, err := objectstore.ParseHash(stmt.ColumnText(1))
		if err != nil {
			return Branch{}, latticeerr.Catalog("corrupt branches row: %w", err)
		}
		b.Head = &head
	}
	return b, nil
}
