// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"github.com/lattice-vcs/lattice/internal/catalog"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// Status summarizes the working state of a repository, as printed by
// the status command.
type Status struct {
	Branch string
	Head   *objectstore.Hash
	Staged []catalog.StagedFile
}

// DiffResult is the result of comparing two commits' file sets.
type DiffResult struct {
	Added    []string
	Removed  []string
	Modified []string
}

// BranchInfo is one row of branch --list output.
type BranchInfo struct {
	Name    string
	Head    *objectstore.Hash
	Current bool
}
