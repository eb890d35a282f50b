// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import "context"

// Status reports the currently checked-out branch, its head commit (nil
// on an unborn branch), and every staged file awaiting the next commit.
func (r *Repository) Status(ctx context.Context) (Status, error) {
	branchName, err := r.catalog.GetHead(ctx)
	if err != nil {
		return Status{}, err
	}
	branch, _, err := r.catalog.GetBranch(ctx, branchName)
	if err != nil {
		return Status{}, err
	}
	staged, err := r.catalog.ListStagedFiles(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{Branch: branchName, Head: branch.Head, Staged: staged}, nil
}
