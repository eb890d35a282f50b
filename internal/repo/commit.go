// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lattice-vcs/lattice/internal/catalog"
	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

// Commit snapshots every staged entry into a new commit, parented on
// the current branch's head, and re-points the branch at it. Fails
// with latticeerr.KindEmptyCommit if nothing is staged.
func (r *Repository) Commit(ctx context.Context, message string) (objectstore.Hash, error) {
	staged, err := r.catalog.ListStagedFiles(ctx)
	if err != nil {
		return objectstore.Hash{}, err
	}
	if len(staged) == 0 {
		return objectstore.Hash{}, latticeerr.EmptyCommit("nothing staged; run add first")
	}

	branchName, err := r.catalog.GetHead(ctx)
	if err != nil {
		return objectstore.Hash{}, err
	}
	branch, _, err := r.catalog.GetBranch(ctx, branchName)
	if err != nil {
		return objectstore.Hash{}, err
	}

	files := make([]catalog.CommitFile, len(staged))
	for i, s := range staged {
		files[i] = catalog.CommitFile{Path: s.Path, Digest: s.Digest, Size: s.Size}
	}
	sortCommitFiles(files)

	timestamp := time.Now().UTC()
	digest := commitDigest(message, timestamp, branch.Head, files)

	rec := catalog.CommitRecord{
		Digest:    digest,
		Message:   message,
		Timestamp: timestamp,
		Parent:    branch.Head,
		Files:     files,
	}
	if err := r.catalog.InsertCommit(ctx, rec); err != nil {
		return objectstore.Hash{}, err
	}
	if err := r.catalog.UpdateBranchHead(ctx, branchName, digest); err != nil {
		return objectstore.Hash{}, err
	}
	if err := r.catalog.ClearStagedFiles(ctx); err != nil {
		return objectstore.Hash{}, err
	}
	return digest, nil
}

// Amend replaces the current branch's head commit with a new one:
// staged entries overlay the amended commit's file set (same path
// overrides, new paths add), the parent stays the amended commit's
// parent, and message defaults to the amended commit's message when
// nil. Fails with latticeerr.KindNoCommit if the branch has no head.
func (r *Repository) Amend(ctx context.Context, message *string) (objectstore.Hash, error) {
	branchName, err := r.catalog.GetHead(ctx)
	if err != nil {
		return objectstore.Hash{}, err
	}
	branch, _, err := r.catalog.GetBranch(ctx, branchName)
	if err != nil {
		return objectstore.Hash{}, err
	}
	if branch.Head == nil {
		return objectstore.Hash{}, latticeerr.NoCommit("branch %q has no commit to amend", branchName)
	}

	current, err := r.catalog.GetCommit(ctx, *branch.Head)
	if err != nil {
		return objectstore.Hash{}, err
	}
	staged, err := r.catalog.ListStagedFiles(ctx)
	if err != nil {
		return objectstore.Hash{}, err
	}

	byPath := make(map[string]catalog.CommitFile, len(current.Files))
	for _, f := range current.Files {
		byPath[f.Path] = f
	}
	for _, s := range staged {
		byPath[s.Path] = catalog.CommitFile{Path: s.Path, Digest: s.Digest, Size: s.Size}
	}
	files := make([]catalog.CommitFile, 0, len(byPath))
	for _, f := range byPath {
		files = append(files, f)
	}
	sortCommitFiles(files)

	msg := current.Message
	if message != nil {
		msg = *message
	}

	timestamp := time.Now().UTC()
	digest := commitDigest(msg, timestamp, current.Parent, files)

	rec := catalog.CommitRecord{
		Digest:    digest,
		Message:   msg,
		Timestamp: timestamp,
		Parent:    current.Parent,
		Files:     files,
	}
	if err := r.catalog.InsertCommit(ctx, rec); err != nil {
		return objectstore.Hash{}, err
	}
	if err := r.catalog.UpdateBranchHead(ctx, branchName, digest); err != nil {
		return objectstore.Hash{}, err
	}
	if err := r.catalog.ClearStagedFiles(ctx); err != nil {
		return objectstore.Hash{}, err
	}
	return digest, nil
}

func sortCommitFiles(files []catalog.CommitFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}

// commitDigest computes the canonical commit digest per spec.md §4.E:
// hash(message 0x00 RFC3339(timestamp) 0x00 parent_or_empty 0x00
// sorted "path:digest:size" lines joined by 0x0A). files must already
// be sorted by path; the caller owns that so this stays a pure
// function of its inputs (testable without a catalog).
func commitDigest(message string, timestamp time.Time, parent *objectstore.Hash, files []catalog.CommitFile) objectstore.Hash {
	var buf bytes.Buffer
	buf.WriteString(message)
	buf.WriteByte(0x00)
	buf.WriteString(timestamp.UTC().Format(time.RFC3339))
	buf.WriteByte(0x00)
	if parent != nil {
		buf.WriteString(objectstore.FormatHash(*parent))
	}
	buf.WriteByte(0x00)
	for i, f := range files {
		if i > 0 {
			buf.WriteByte(0x0A)
		}
		fmt.Fprintf(&buf, "%s:%s:%d", f.Path, objectstore.FormatHash(f.Digest), f.Size)
	}
	return objectstore.SumAll(buf.Bytes())
}
