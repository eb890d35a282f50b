// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectstore implements lattice's content-addressed object
// store: a fixed-output hasher, a sharded atomic-write blob store, and
// the fixed-size chunker/manifest pair that lets large files be stored
// and reassembled as a sequence of smaller objects.
//
// The three concerns share this package (rather than three packages)
// because they share a single type, Hash, and because the chunker and
// store are each other's only caller in this codebase — splitting them
// would just add an import for no abstraction benefit.
package objectstore

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 256-bit BLAKE3 digest. It identifies every object (chunk
// or manifest) in the store, every commit, and every branch target.
type Hash [32]byte

// Hasher computes a streaming BLAKE3 digest. The zero value is not
// usable; create one with NewHasher.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a fresh streaming hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Write implements io.Writer, feeding bytes into the running digest.
// Never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum finalizes the digest. The Hasher remains usable for further
// Write calls afterward (BLAKE3 finalization does not consume state),
// mirroring hash.Hash semantics.
func (h *Hasher) Sum() Hash {
	var out Hash
	sum := h.h.Sum(nil)
	copy(out[:], sum)
	return out
}

// SumAll is the one-shot convenience form: hash_all(bytes) -> Digest.
func SumAll(data []byte) Hash {
	h := blake3.New()
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// FormatHash renders a digest as 64 lowercase hex characters — the
// canonical textual form accepted back by ParseHash and used in
// catalog rows, CLI output, and the wire protocol.
func FormatHash(h Hash) string {
	return hex.EncodeToString(h[:])
}

// ParseHash parses a full 64-character hex digest. Prefix resolution
// (finding the unique match for a shorter prefix) is done by
// Catalog.ResolvePrefix and Store.ResolvePrefix, not here.
func ParseHash(s string) (Hash, error) {
	var h Hash
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parsing digest %q: %w", s, err)
	}
	if len(decoded) != len(h) {
		return h, fmt.Errorf("digest %q is %d bytes, want %d", s, len(decoded), len(h))
	}
	copy(h[:], decoded)
	return h, nil
}

// IsZero reports whether h is the zero digest (never a valid object
// identity — Manifest.Validate rejects a chunk entry carrying it).
func (h Hash) IsZero() bool {
	return h == Hash{}
}
