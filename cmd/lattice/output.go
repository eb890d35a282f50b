// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/lattice-vcs/lattice/internal/catalog"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

func printCommit(w io.Writer, rec catalog.CommitRecord) {
	parent := "none"
	if rec.Parent != nil {
		parent = objectstore.FormatHash(*rec.Parent)
	}
	fmt.Fprintf(w, "commit %s\nparent  %s\ndate    %s\n\n    %s\n\n",
		objectstore.FormatHash(rec.Digest), parent, rec.Timestamp.Format("2006-01-02 15:04:05 MST"), rec.Message)
}

func printStagedFile(w io.Writer, f catalog.StagedFile) {
	fmt.Fprintf(w, "  %s  %s  %s\n", objectstore.FormatHash(f.Digest), humanize.Bytes(f.Size), f.Path)
}

func printChunk(w io.Writer, entry objectstore.ManifestChunkEntry) {
	fmt.Fprintf(w, "%4d  %s  %s\n", entry.Index, objectstore.FormatHash(entry.Digest), humanize.Bytes(uint64(entry.Size)))
}
