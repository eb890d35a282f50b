// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"errors"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// Resolve turns a digest reference (a full 64-character hex digest, or
// any unambiguous prefix of one) into the full Hash it names. A full
// digest is parsed directly; anything shorter is resolved against the
// catalog first (commits, manifests, commit files, manifest chunks,
// branch heads — the references most commands care about) and, if the
// catalog has no match, against the object store's own shard layout
// (an object written but not yet referenced by any catalog row).
func (r *Repository) Resolve(ctx context.Context, ref string) (objectstore.Hash, error) {
	if len(ref) == 64 {
		if h, err := objectstore.ParseHash(ref); err == nil {
			return h, nil
		}
	}

	h, err := r.catalog.ResolvePrefix(ctx, ref)
	if err == nil {
		return h, nil
	}
	if kind, ok := latticeerr.KindOf(err); !ok || kind != latticeerr.KindNotFound {
		return objectstore.Hash{}, err
	}

	h, storeErr := r.store.ResolvePrefix(ref)
	if storeErr != nil {
		var le *latticeerr.Error
		if errors.As(storeErr, &le) && le.Kind == latticeerr.KindNotFound {
			return objectstore.Hash{}, latticeerr.NotFound("no object matches reference %q", ref)
		}
		return objectstore.Hash{}, storeErr
	}
	return h, nil
}
