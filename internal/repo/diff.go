// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"sort"

	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// Diff resolves refA and refB to commits and compares their file sets
// by path. "Modified" means the same path resolved to different file
// digests in the two commits; renames are not detected and surface as
// a remove in one set plus an add in the other.
func (r *Repository) Diff(ctx context.Context, refA, refB string) (DiffResult, error) {
	a, err := r.Resolve(ctx, refA)
	if err != nil {
		return DiffResult{}, err
	}
	b, err := r.Resolve(ctx, refB)
	if err != nil {
		return DiffResult{}, err
	}

	commitA, err := r.catalog.GetCommit(ctx, a)
	if err != nil {
		return DiffResult{}, err
	}
	commitB, err := r.catalog.GetCommit(ctx, b)
	if err != nil {
		return DiffResult{}, err
	}

	filesA := make(map[string]objectstore.Hash, len(commitA.Files))
	for _, f := range commitA.Files {
		filesA[f.Path] = f.Digest
	}
	filesB := make(map[string]objectstore.Hash, len(commitB.Files))
	for _, f := range commitB.Files {
		filesB[f.Path] = f.Digest
	}

	var result DiffResult
	for path, digestA := range filesA {
		digestB, ok := filesB[path]
		if !ok {
			result.Removed = append(result.Removed, path)
			continue
		}
		if digestA != digestB {
			result.Modified = append(result.Modified, path)
		}
	}
	for path := range filesB {
		if _, ok := filesA[path]; !ok {
			result.Added = append(result.Added, path)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(result.Modified)
	return result, nil
}
