// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"time"

	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// StagedFile is one row of the staging area: a path awaiting its next
// commit, keyed by path.
type StagedFile struct {
	Path     string
	Digest   objectstore.Hash
	Size     uint64
	StagedAt time.Time
}

// CommitFile is one path within a commit's file_set.
type CommitFile struct {
	Path   string
	Digest objectstore.Hash
	Size   uint64
}

// CommitRecord is a commit row plus its file_set, as returned by log
// and diff traversal.
type CommitRecord struct {
	Digest    objectstore.Hash
	Message   string
	Timestamp time.Time
	Parent    *objectstore.Hash
	Files     []CommitFile
}

// Branch is a named pointer to a commit, or to no commit yet.
type Branch struct {
	Name string
	Head *objectstore.Hash
}
