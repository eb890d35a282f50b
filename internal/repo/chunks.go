// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"

	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// Chunks resolves ref and returns its chunk list: the manifest's
// entries if it names a manifest, or a single synthetic entry spanning
// the whole object if it names a bare chunk.
func (r *Repository) Chunks(ctx context.Context, ref string) ([]objectstore.ManifestChunkEntry, error) {
	digest, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	manifest, ok, err := r.catalog.GetManifest(ctx, digest)
	if err != nil {
		return nil, err
	}
	if ok {
		return manifest.Chunks, nil
	}

	size, err := r.store.Size(digest)
	if err != nil {
		return nil, err
	}
	return []objectstore.ManifestChunkEntry{
		{Index: 0, Digest: digest, Size: uint32(size)},
	}, nil
}
