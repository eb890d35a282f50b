// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements lattice's sync layer (spec.md §4.F,
// §4.G): fetch, pull, push, clone, and serve, all built on top of
// internal/transport's RPCs and internal/repo's local facade. Nothing
// here touches the network or the catalog directly except through
// those two packages.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/peer"
	"github.com/lattice-vcs/lattice/internal/repo"
	"github.com/lattice-vcs/lattice/internal/transport"
)

// DefaultFetchConcurrency bounds how many chunks are outstanding at
// once during a fetch (spec.md §4.G: "a bounded semaphore, default
// capacity 8").
const DefaultFetchConcurrency = 8

// Orchestrator runs fetch/pull/push/clone/serve against one local
// repository, using identity and table to resolve and authenticate
// peers.
type Orchestrator struct {
	repo        *repo.Repository
	identity    *peer.Identity
	table       *peer.Table
	logger      *slog.Logger
	concurrency int
}

// New returns an Orchestrator bound to r. table may be nil (a caller
// that only ever dials peers by literal address, never by PeerId,
// doesn't need one).
func New(r *repo.Repository, identity *peer.Identity, table *peer.Table, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		repo:        r,
		identity:    identity,
		table:       table,
		logger:      logger,
		concurrency: DefaultFetchConcurrency,
	}
}

// SetConcurrency overrides the fetch chunk concurrency (DefaultFetchConcurrency
// otherwise), for callers wiring internal/config's fetch_concurrency.
func (o *Orchestrator) SetConcurrency(n int) {
	if n > 0 {
		o.concurrency = n
	}
}

// resolveTarget turns a caller-supplied peer reference into a dial
// address and, when known, the PeerId the handshake should verify.
// target is tried against the peer table first (it names a PeerId with
// one or more known addresses); anything the table doesn't recognize
// is treated as a literal "host:port" address with no identity to
// verify yet — the handshake still tells the caller who answered, it
// just isn't checked against a prior claim.
func (o *Orchestrator) resolveTarget(target string) (addr string, expectedPeerID string) {
	if o.table != nil {
		if addrs := o.table.Addresses(target); len(addrs) > 0 {
			return addrs[0], target
		}
	}
	return target, ""
}

// dial resolves target and opens a fresh, handshaken connection to it.
func (o *Orchestrator) dial(ctx context.Context, target string) (*transport.Client, error) {
	addr, expectedPeerID := o.resolveTarget(target)
	return transport.Dial(ctx, addr, o.identity, expectedPeerID)
}

// runWithReconnect dials target, runs fn against the connection, and
// implements spec.md §4.G's "peer disconnects mid-operation: reattempt
// dial once, then fail": if fn fails with a connection-level error
// (isReconnectable), target is dialed again and fn is given one more
// attempt on the fresh connection before the failure is final. fn must
// not retain the *transport.Client past its return.
func (o *Orchestrator) runWithReconnect(ctx context.Context, target string, fn func(*transport.Client) error) error {
	client, err := o.dial(ctx, target)
	if err != nil {
		return err
	}
	err = fn(client)
	client.Close()
	if err == nil || !isReconnectable(err) {
		return err
	}

	client2, dialErr := o.dial(ctx, target)
	if dialErr != nil {
		return latticeerr.PeerUnreachable("reconnecting to %s after disconnect: %v", target, dialErr)
	}
	defer client2.Close()
	return fn(client2)
}

// isReconnectable reports whether err indicates the connection itself
// failed (dead socket, timeout) rather than the request being rejected
// for a reason a retry can't fix (not found, digest mismatch, protocol
// error) — spec.md §4.G's "peer disconnects mid-fetch: reattempt dial
// once, then fail" applies only to the former.
func isReconnectable(err error) bool {
	kind, ok := latticeerr.KindOf(err)
	if !ok {
		// An unwrapped error from the transport layer (closed
		// connection, EOF) is always a connection-level failure.
		return true
	}
	switch kind {
	case latticeerr.KindPeerUnreachable, latticeerr.KindTimeout:
		return true
	default:
		return false
	}
}
