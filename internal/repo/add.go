// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// Add chunks and stores the file at path, then stages it. Returns the
// digest that now identifies path's content (spec.md §4.E add).
func (r *Repository) Add(ctx context.Context, path string) (objectstore.Hash, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return objectstore.Hash{}, latticeerr.PathNotFound("%s: no such file", path)
		}
		return objectstore.Hash{}, latticeerr.IO("statting %s: %w", path, err)
	}
	if info.IsDir() {
		return objectstore.Hash{}, latticeerr.PathIsDirectory("%s is a directory", path)
	}

	digest, manifest, err := objectstore.StoreFile(r.store, path)
	if err != nil {
		return objectstore.Hash{}, err
	}

	// objectstore.StoreFile is pure CAS — it has no catalog handle, so
	// if the file needed a manifest (multi-chunk), this is where the
	// manifest row gets recorded, the one place that distinguishes it
	// from a bare chunk for every later Resolve/Chunks/GetManifest call.
	if manifest != nil {
		if err := r.catalog.InsertManifest(ctx, digest, manifest); err != nil {
			return objectstore.Hash{}, err
		}
	}

	// Paths inside the repository are staged relative to its root.
	stagedPath := path
	if absRoot, err := filepath.Abs(r.root); err == nil {
		if absPath, err := filepath.Abs(path); err == nil {
			if rel, err := filepath.Rel(absRoot, absPath); err == nil && !strings.HasPrefix(rel, "..") {
				stagedPath = filepath.ToSlash(rel)
			}
		}
	}

	if err := r.catalog.StageFile(ctx, stagedPath, digest, uint64(info.Size()), time.Now()); err != nil {
		return objectstore.Hash{}, err
	}
	return digest, nil
}
