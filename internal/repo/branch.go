// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
)

// CreateBranch creates a branch named name pointing at the current
// branch's head commit. Fails with latticeerr.KindBranchExists if name
// is already taken.
func (r *Repository) CreateBranch(ctx context.Context, name string) error {
	branchName, err := r.catalog.GetHead(ctx)
	if err != nil {
		return err
	}
	branch, _, err := r.catalog.GetBranch(ctx, branchName)
	if err != nil {
		return err
	}
	return r.catalog.CreateBranch(ctx, name, branch.Head)
}

// ListBranches returns every branch, marking which one is current.
func (r *Repository) ListBranches(ctx context.Context) ([]BranchInfo, error) {
	current, err := r.catalog.GetHead(ctx)
	if err != nil {
		return nil, err
	}
	branches, err := r.catalog.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]BranchInfo, len(branches))
	for i, b := range branches {
		infos[i] = BranchInfo{Name: b.Name, Head: b.Head, Current: b.Name == current}
	}
	return infos, nil
}

// DeleteBranch removes a branch. Fails with latticeerr.KindUnknownBranch
// if it does not exist, or latticeerr.KindDeleteCurrentBranch if it is
// the checked-out branch.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	return r.catalog.DeleteBranch(ctx, name)
}

// Checkout moves HEAD to branch name, updating both the catalog's head
// row (authoritative for every other Facade operation) and the
// plain-text HEAD file at the repository root (the external contract
// spec.md §6 documents). Fails with latticeerr.KindUnknownBranch if
// name does not exist.
func (r *Repository) Checkout(ctx context.Context, name string) error {
	if _, ok, err := r.catalog.GetBranch(ctx, name); err != nil {
		return err
	} else if !ok {
		return latticeerr.UnknownBranch("branch %q does not exist", name)
	}
	if err := r.catalog.SetHead(ctx, name); err != nil {
		return err
	}
	return writeHeadFile(r.root, name)
}
