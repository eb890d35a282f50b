// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"

	"github.com/lattice-vcs/lattice/internal/catalog"
)

// Log walks parent links from the current branch's head to the root,
// returning commits newest-first. An unborn branch (no commits yet)
// returns an empty slice.
func (r *Repository) Log(ctx context.Context) ([]catalog.CommitRecord, error) {
	branchName, err := r.catalog.GetHead(ctx)
	if err != nil {
		return nil, err
	}
	branch, _, err := r.catalog.GetBranch(ctx, branchName)
	if err != nil {
		return nil, err
	}
	return r.catalog.CommitsReachableFromOptional(ctx, branch.Head)
}
