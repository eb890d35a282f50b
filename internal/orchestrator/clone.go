// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/lattice-vcs/lattice/internal/catalog"
	"github.com/lattice-vcs/lattice/internal/repo"
)

// Clone implements spec.md §4.G's clone: init a fresh repository at
// targetDir, pull everything from target into it, then move HEAD to
// whichever branch target currently has checked out (pull itself only
// ever advances the new repository's own default branch, since it has
// no other branch to reconcile against on a from-scratch clone).
func (o *Orchestrator) Clone(ctx context.Context, target, targetDir string) (err error) {
	newRepo, err := repo.Init(ctx, targetDir, o.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := newRepo.Close(); err == nil {
			err = closeErr
		}
	}()

	newOrch := New(newRepo, o.identity, o.table, o.logger)
	if err := newOrch.Pull(ctx, target); err != nil {
		return err
	}

	branchName, err := newOrch.remoteBranch(ctx, target)
	if err != nil {
		return err
	}
	if branchName == "" || branchName == catalog.DefaultBranch {
		return nil
	}

	if err := newRepo.CreateBranch(ctx, branchName); err != nil {
		return err
	}
	if err := newRepo.Checkout(ctx, branchName); err != nil {
		return err
	}
	return newRepo.DeleteBranch(ctx, catalog.DefaultBranch)
}
