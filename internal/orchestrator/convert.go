// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"time"

	"github.com/lattice-vcs/lattice/internal/catalog"
	"github.com/lattice-vcs/lattice/internal/objectstore"
	"github.com/lattice-vcs/lattice/internal/transport"
)

// commitToWire converts a catalog commit into its wire payload, used by
// both get_commit's response and push's put_commit request.
func commitToWire(rec catalog.CommitRecord) *transport.CommitPayload {
	files := make([]transport.FileEntryWire, len(rec.Files))
	for i, f := range rec.Files {
		files[i] = transport.FileEntryWire{
			Path:   f.Path,
			Digest: objectstore.FormatHash(f.Digest),
			Size:   f.Size,
		}
	}
	payload := &transport.CommitPayload{
		Digest:    objectstore.FormatHash(rec.Digest),
		Message:   rec.Message,
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Files:     files,
	}
	if rec.Parent != nil {
		payload.Parent = objectstore.FormatHash(*rec.Parent)
	}
	return payload
}

// commitFromWire is commitToWire's inverse, used when a peer's
// get_commit response or put_commit request needs to become a
// catalog.CommitRecord ready for InsertCommit.
func commitFromWire(payload *transport.CommitPayload) (catalog.CommitRecord, error) {
	digest, err := objectstore.ParseHash(payload.Digest)
	if err != nil {
		return catalog.CommitRecord{}, err
	}
	timestamp, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return catalog.CommitRecord{}, err
	}

	rec := catalog.CommitRecord{
		Digest:    digest,
		Message:   payload.Message,
		Timestamp: timestamp,
	}
	if payload.Parent != "" {
		parent, err := objectstore.ParseHash(payload.Parent)
		if err != nil {
			return catalog.CommitRecord{}, err
		}
		rec.Parent = &parent
	}

	files := make([]catalog.CommitFile, len(payload.Files))
	for i, f := range payload.Files {
		fileDigest, err := objectstore.ParseHash(f.Digest)
		if err != nil {
			return catalog.CommitRecord{}, err
		}
		files[i] = catalog.CommitFile{Path: f.Path, Digest: fileDigest, Size: f.Size}
	}
	rec.Files = files
	return rec, nil
}

// commitSummary reduces a full commit record to the abbreviated form
// list_commits sends in bulk.
func commitSummary(rec catalog.CommitRecord) transport.CommitSummaryWire {
	summary := transport.CommitSummaryWire{
		Digest:    objectstore.FormatHash(rec.Digest),
		Message:   rec.Message,
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if rec.Parent != nil {
		summary.Parent = objectstore.FormatHash(*rec.Parent)
	}
	return summary
}

// manifestToWire/manifestFromWire translate objectstore.Manifest across
// the wire boundary, the same way commitToWire/commitFromWire do for
// commits — the transport package only knows hex strings, never Hash.
func manifestToWire(m *objectstore.Manifest) *transport.ManifestPayload {
	chunks := make([]transport.ManifestChunkWire, len(m.Chunks))
	for i, c := range m.Chunks {
		chunks[i] = transport.ManifestChunkWire{
			Index:  c.Index,
			Digest: objectstore.FormatHash(c.Digest),
			Size:   c.Size,
		}
	}
	return &transport.ManifestPayload{TotalSize: m.TotalSize, Chunks: chunks}
}

func manifestFromWire(payload *transport.ManifestPayload) (*objectstore.Manifest, error) {
	chunks := make([]objectstore.ManifestChunkEntry, len(payload.Chunks))
	for i, c := range payload.Chunks {
		digest, err := objectstore.ParseHash(c.Digest)
		if err != nil {
			return nil, err
		}
		chunks[i] = objectstore.ManifestChunkEntry{Index: c.Index, Digest: digest, Size: c.Size}
	}
	return &objectstore.Manifest{TotalSize: payload.TotalSize, Chunks: chunks}, nil
}
