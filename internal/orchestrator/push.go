// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
	"github.com/lattice-vcs/lattice/internal/transport"
)

// Push is pull run in the other direction (DESIGN.md's resolution of
// spec.md's open push question): list the peer's commits, find the
// local commits it doesn't have yet, push every object those commits
// reference, then the commits themselves, parent-first.
func (o *Orchestrator) Push(ctx context.Context, target string) error {
	return o.runWithReconnect(ctx, target, func(client *transport.Client) error {
		return o.pushOnce(ctx, client)
	})
}

func (o *Orchestrator) pushOnce(ctx context.Context, client *transport.Client) error {
	resp, err := callWithRetry(ctx, client, &transport.Request{Kind: transport.KindListCommits})
	if err != nil {
		return err
	}
	if !resp.Found {
		return latticeerr.ProtocolError("peer rejected list_commits: %s", resp.Error)
	}
	remoteKnown := make(map[string]bool, len(resp.Commits))
	for _, summary := range resp.Commits {
		remoteKnown[summary.Digest] = true
	}

	local, err := o.repo.Log(ctx)
	if err != nil {
		return err
	}

	var missing []int // indices into local, newest-first
	for i, rec := range local {
		if remoteKnown[objectstore.FormatHash(rec.Digest)] {
			break
		}
		missing = append(missing, i)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		rec := local[missing[i]]
		for _, f := range rec.Files {
			if err := o.pushObject(ctx, client, f.Digest); err != nil {
				return err
			}
		}
		putResp, err := callWithRetry(ctx, client, &transport.Request{
			Kind:   transport.KindPutCommit,
			Commit: commitToWire(rec),
		})
		if err != nil {
			return err
		}
		if !putResp.Found {
			return latticeerr.ProtocolError("peer rejected commit %s: %s", objectstore.FormatHash(rec.Digest), putResp.Error)
		}
	}
	return nil
}

// pushObject sends digest's bytes to the peer, recursing through a
// manifest's chunk list first. The manifest object itself is sent the
// same way a bare chunk is (as a single put_chunk) — server.PutChunk
// sniffs the bytes with objectstore.IsManifest to decide whether to
// also register a manifests-table row, so there is no separate
// put_manifest kind on the wire.
func (o *Orchestrator) pushObject(ctx context.Context, client *transport.Client, digest objectstore.Hash) error {
	manifest, isManifest, err := o.repo.Catalog().GetManifest(ctx, digest)
	if err != nil {
		return err
	}
	if isManifest {
		for _, entry := range manifest.Chunks {
			if err := o.pushChunk(ctx, client, entry.Digest); err != nil {
				return err
			}
		}
	}
	return o.pushChunk(ctx, client, digest)
}

func (o *Orchestrator) pushChunk(ctx context.Context, client *transport.Client, digest objectstore.Hash) error {
	raw, err := o.repo.Store().Get(digest)
	if err != nil {
		return err
	}
	data, compressed := transport.CompressChunk(raw)
	resp, err := callWithRetry(ctx, client, &transport.Request{
		Kind:   transport.KindPutChunk,
		Digest: objectstore.FormatHash(digest),
		Chunk: &transport.ChunkPayload{
			Digest:     objectstore.FormatHash(digest),
			Data:       data,
			Compressed: compressed,
			RawSize:    uint32(len(raw)),
		},
	})
	if err != nil {
		return err
	}
	if !resp.Found {
		return latticeerr.ProtocolError("peer rejected chunk %s: %s", objectstore.FormatHash(digest), resp.Error)
	}
	return nil
}
