// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
	"github.com/lattice-vcs/lattice/internal/transport"
)

// Pull implements spec.md §4.G's pull algorithm: list the peer's
// commits, find the delta against what's already local (traversal
// stops at the first commit already present, since everything behind
// it must already be present too), fetch each missing commit's
// referenced objects, insert the commits parent-first, and fast-forward
// the current branch if the delta's ancestry connects to local HEAD.
func (o *Orchestrator) Pull(ctx context.Context, target string) error {
	return o.runWithReconnect(ctx, target, func(client *transport.Client) error {
		return o.pullOnce(ctx, client, target)
	})
}

func (o *Orchestrator) pullOnce(ctx context.Context, client *transport.Client, target string) error {
	resp, err := callWithRetry(ctx, client, &transport.Request{Kind: transport.KindListCommits})
	if err != nil {
		return err
	}
	if !resp.Found {
		return latticeerr.ProtocolError("peer rejected list_commits: %s", resp.Error)
	}

	cat := o.repo.Catalog()

	var missing []transport.CommitSummaryWire
	var convergedAt *objectstore.Hash
	for _, summary := range resp.Commits {
		digest, err := objectstore.ParseHash(summary.Digest)
		if err != nil {
			return latticeerr.ProtocolError("peer sent malformed commit digest %q: %v", summary.Digest, err)
		}
		if _, getErr := cat.GetCommit(ctx, digest); getErr == nil {
			convergedAt = &digest
			break
		} else if kind, ok := latticeerr.KindOf(getErr); !ok || kind != latticeerr.KindNotFound {
			return getErr
		}
		missing = append(missing, summary)
	}

	// missing is newest-first (list_commits order); reverse for
	// parent-first insertion, since InsertCommit enforces that a
	// commit's parent already exists (invariant I3).
	for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
		missing[i], missing[j] = missing[j], missing[i]
	}

	for _, summary := range missing {
		commitResp, err := callWithRetry(ctx, client, &transport.Request{
			Kind:   transport.KindGetCommit,
			Digest: summary.Digest,
		})
		if err != nil {
			return err
		}
		if !commitResp.Found || commitResp.Commit == nil {
			return latticeerr.ProtocolError("peer listed commit %s but get_commit found nothing", summary.Digest)
		}
		rec, err := commitFromWire(commitResp.Commit)
		if err != nil {
			return latticeerr.ProtocolError("decoding commit %s: %v", summary.Digest, err)
		}

		for _, f := range rec.Files {
			if err := o.ensureObject(ctx, client, f.Digest); err != nil {
				return err
			}
		}
		if err := cat.InsertCommit(ctx, rec); err != nil {
			return err
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return o.fastForward(ctx, convergedAt, missing[len(missing)-1].Digest)
}

// fastForward moves the current branch's head to newestDigest, but
// only when convergedAt (the commit pull's delta-walk stopped at)
// matches the branch's own current head — local HEAD is exactly the
// point the remote history and local history share, so advancing past
// it is a pure fast-forward and never discards a local commit. nil
// convergedAt means the remote history shares nothing with local
// (brand new branch, as in clone): that's still safe to fast-forward
// when local HEAD is also unborn.
func (o *Orchestrator) fastForward(ctx context.Context, convergedAt *objectstore.Hash, newestDigest string) error {
	cat := o.repo.Catalog()
	branchName, err := cat.GetHead(ctx)
	if err != nil {
		return err
	}
	branch, _, err := cat.GetBranch(ctx, branchName)
	if err != nil {
		return err
	}

	sameConvergence := (convergedAt == nil && branch.Head == nil) ||
		(convergedAt != nil && branch.Head != nil && *convergedAt == *branch.Head)
	if !sameConvergence {
		return latticeerr.ProtocolError("local branch %q has diverged from the peer's history; pull cannot fast-forward", branchName)
	}

	newest, err := objectstore.ParseHash(newestDigest)
	if err != nil {
		return latticeerr.ProtocolError("malformed commit digest %q: %v", newestDigest, err)
	}
	return cat.UpdateBranchHead(ctx, branchName, newest)
}

// remoteBranch returns target's currently checked-out branch name, for
// clone's final "set HEAD to match the source" step.
func (o *Orchestrator) remoteBranch(ctx context.Context, target string) (string, error) {
	var branch string
	err := o.runWithReconnect(ctx, target, func(client *transport.Client) error {
		resp, err := callWithRetry(ctx, client, &transport.Request{Kind: transport.KindListCommits})
		if err != nil {
			return err
		}
		if !resp.Found {
			return latticeerr.ProtocolError("peer rejected list_commits: %s", resp.Error)
		}
		branch = resp.Branch
		return nil
	})
	return branch, err
}
