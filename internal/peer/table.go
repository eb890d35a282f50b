// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import "sync"

// Table is the shared mutable map of known peers, guarded by a mutex
// held only during insert/lookup/remove — spec.md §5's "peer table is
// a shared mutable map; guarded by a mutex of small scope."
type Table struct {
	mu    sync.Mutex
	peers map[string][]string // PeerId -> addresses
}

// NewTable returns an empty peer table.
func NewTable() *Table {
	return &Table{peers: make(map[string][]string)}
}

// Add records address as a known location for peerID. A peer may have
// more than one address (discovered on multiple interfaces, or added
// both via discovery and explicit configuration); duplicates are not
// re-added.
func (t *Table) Add(peerID, address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.peers[peerID] {
		if existing == address {
			return
		}
	}
	t.peers[peerID] = append(t.peers[peerID], address)
}

// Addresses returns the known addresses for peerID, or nil if unknown.
func (t *Table) Addresses(peerID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	addrs := t.peers[peerID]
	out := make([]string, len(addrs))
	copy(out, addrs)
	return out
}

// Remove discards everything known about peerID (used when every
// address for a peer has failed to dial).
func (t *Table) Remove(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, peerID)
}

// Entry is one row of `peers` command output.
type Entry struct {
	PeerID    string
	Addresses []string
}

// List returns every known peer and its addresses.
func (t *Table) List() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := make([]Entry, 0, len(t.peers))
	for id, addrs := range t.peers {
		cp := make([]string, len(addrs))
		copy(cp, addrs)
		entries = append(entries, Entry{PeerID: id, Addresses: cp})
	}
	return entries
}
