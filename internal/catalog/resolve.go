// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// ResolvePrefix resolves a hex digest prefix to the unique full digest
// it names, searching every digest the catalog owns: commit digests,
// manifest digests, commit file digests, manifest chunk digests, and
// branch heads (spec.md §3: "the catalog must resolve a prefix to a
// unique full digest or fail with AmbiguousReference"). Digests that
// exist only in the object store with no catalog reference at all
// (an uncommitted chunk fetched standalone) are outside the catalog's
// domain — callers fall back to objectstore.Store.ResolvePrefix for
// those.
func (c *Catalog) ResolvePrefix(ctx context.Context, prefix string) (objectstore.Hash, error) {
	if prefix == "" {
		return objectstore.Hash{}, fmt.Errorf("empty digest reference")
	}

	conn, release, err := c.take(ctx)
	if err != nil {
		return objectstore.Hash{}, err
	}
	defer release()

	const query = `
		SELECT digest FROM commits WHERE digest LIKE ?
		UNION
		SELECT digest FROM manifests WHERE digest LIKE ?
		UNION
		SELECT file_digest FROM commit_files WHERE file_digest LIKE ?
		UNION
		SELECT chunk_digest FROM manifest_chunks WHERE chunk_digest LIKE ?
		UNION
		SELECT head_commit_digest FROM branches WHERE head_commit_digest LIKE ?
	`
	like := prefix + "%"
	args := []any{like, like, like, like, like}

	var matches []string
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			matches = append(matches, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return objectstore.Hash{}, latticeerr.Catalog("resolving prefix %q: %w", prefix, err)
	}

	switch len(matches) {
	case 0:
		return objectstore.Hash{}, latticeerr.NotFound("no object matches reference %q", prefix)
	case 1:
		return objectstore.ParseHash(matches[0])
	default:
		return objectstore.Hash{}, latticeerr.AmbiguousReference("reference %q matches %d objects", prefix, len(matches))
	}
}
