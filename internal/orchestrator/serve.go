// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"net"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
	"github.com/lattice-vcs/lattice/internal/transport"
)

// Orchestrator implements transport.Handler directly against its
// repository, so the same type that drives fetch/pull/push/clone as a
// client also answers them as a server.
var _ transport.Handler = (*Orchestrator)(nil)

// Serve listens on ln and answers every RPC against o's repository
// until ctx is cancelled (spec.md §6's serve command).
func (o *Orchestrator) Serve(ctx context.Context, ln net.Listener) error {
	return transport.Serve(ctx, ln, o.identity, o, o.logger)
}

func (o *Orchestrator) GetChunk(ctx context.Context, digest string) ([]byte, bool, error) {
	h, err := objectstore.ParseHash(digest)
	if err != nil {
		return nil, false, latticeerr.ProtocolError("malformed digest %q: %v", digest, err)
	}
	raw, err := o.repo.Store().Get(h)
	if err != nil {
		if kind, ok := latticeerr.KindOf(err); ok && kind == latticeerr.KindNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (o *Orchestrator) GetManifest(ctx context.Context, digest string) (*transport.ManifestPayload, bool, error) {
	h, err := objectstore.ParseHash(digest)
	if err != nil {
		return nil, false, latticeerr.ProtocolError("malformed digest %q: %v", digest, err)
	}
	manifest, ok, err := o.repo.Catalog().GetManifest(ctx, h)
	if err != nil || !ok {
		return nil, false, err
	}
	return manifestToWire(manifest), true, nil
}

func (o *Orchestrator) ListCommits(ctx context.Context) (string, []transport.CommitSummaryWire, error) {
	describe, err := o.repo.Describe(ctx)
	if err != nil {
		return "", nil, err
	}
	summaries := make([]transport.CommitSummaryWire, len(describe.Commits))
	for i, rec := range describe.Commits {
		summaries[i] = commitSummary(rec)
	}
	return describe.Branch, summaries, nil
}

func (o *Orchestrator) GetCommit(ctx context.Context, digest string) (*transport.CommitPayload, bool, error) {
	h, err := objectstore.ParseHash(digest)
	if err != nil {
		return nil, false, latticeerr.ProtocolError("malformed digest %q: %v", digest, err)
	}
	rec, err := o.repo.Catalog().GetCommit(ctx, h)
	if err != nil {
		if kind, ok := latticeerr.KindOf(err); ok && kind == latticeerr.KindNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return commitToWire(rec), true, nil
}

// PutCommit inserts a commit pushed by a peer and, when it extends the
// current branch's head, fast-forwards the branch — the receive-side
// mirror of pull's fast-forward, advancing as commits arrive in the
// parent-first order Push sends them in.
func (o *Orchestrator) PutCommit(ctx context.Context, commit *transport.CommitPayload) error {
	rec, err := commitFromWire(commit)
	if err != nil {
		return latticeerr.ProtocolError("decoding pushed commit: %v", err)
	}
	cat := o.repo.Catalog()
	if err := cat.InsertCommit(ctx, rec); err != nil {
		return err
	}

	branchName, err := cat.GetHead(ctx)
	if err != nil {
		return err
	}
	branch, _, err := cat.GetBranch(ctx, branchName)
	if err != nil {
		return err
	}
	extendsHead := (branch.Head == nil && rec.Parent == nil) ||
		(branch.Head != nil && rec.Parent != nil && *branch.Head == *rec.Parent)
	if extendsHead {
		return cat.UpdateBranchHead(ctx, branchName, rec.Digest)
	}
	return nil
}

// PutChunk stores a pushed object's bytes. A digest whose bytes decode
// as a well-formed manifest is also registered in the manifests table —
// the wire protocol has no separate put_manifest kind, since a manifest
// is just an object whose content happens to decode that way.
func (o *Orchestrator) PutChunk(ctx context.Context, digest string, raw []byte) error {
	h, err := objectstore.ParseHash(digest)
	if err != nil {
		return latticeerr.ProtocolError("malformed digest %q: %v", digest, err)
	}
	if err := o.repo.Store().PutWithDigest(h, raw); err != nil {
		return err
	}
	if manifest, ok := objectstore.IsManifest(raw); ok {
		return o.repo.Catalog().InsertManifest(ctx, h, manifest)
	}
	return nil
}
