// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"

	"github.com/lattice-vcs/lattice/internal/catalog"
)

// Describe summarizes a repository's current branch state, in the
// shape the orchestrator's ListCommits responder wants: current branch
// name and the commits reachable from it, newest-first.
type Describe struct {
	Branch  string
	Commits []catalog.CommitRecord
}

// Describe returns the current branch and its full commit history, for
// callers that need both together (the peer transport's ListCommits
// handler serves this directly).
func (r *Repository) Describe(ctx context.Context) (Describe, error) {
	branchName, err := r.catalog.GetHead(ctx)
	if err != nil {
		return Describe{}, err
	}
	commits, err := r.Log(ctx)
	if err != nil {
		return Describe{}, err
	}
	return Describe{Branch: branchName, Commits: commits}, nil
}
