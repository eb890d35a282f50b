// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ManifestChunkEntry describes one chunk within a Manifest: its
// position in the reassembled file, its digest, and its size. Chunk
// digests are always taken over the raw chunk bytes, so a chunk that
// appears in two different files (identical content at the same
// chunk boundary) collapses to one entry in the object store.
type ManifestChunkEntry struct {
	Index  uint32 `cbor:"index"  json:"index"`
	Digest Hash   `cbor:"digest" json:"digest"`
	Size   uint32 `cbor:"size"   json:"size"`
}

// Manifest is the serialized record produced for any file larger than
// CHUNK_SIZE: the total size plus the ordered, dense, zero-based list
// of chunks that reassemble it (spec invariant I5). A Manifest is
// itself stored as an object, keyed by the digest of its own
// serialized bytes — exactly like a chunk, which is why the catalog
// (not the object store) is what distinguishes "this digest names a
// manifest" from "this digest names a bare chunk".
type Manifest struct {
	TotalSize uint64               `cbor:"total_size" json:"total_size"`
	Chunks    []ManifestChunkEntry `cbor:"chunks"      json:"chunks"`
}

// cborEncMode is CBOR Core Deterministic Encoding: canonical map key
// ordering and shortest-form integers, so that encoding the same
// Manifest value twice always produces the same bytes (required,
// since the Manifest's own digest is computed over its serialized
// form — spec P1/P5-style determinism applies here too).
var cborEncMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic("objectstore: building CBOR encode mode: " + err.Error())
	}
	return mode
}()

// MarshalManifest encodes a Manifest to its canonical CBOR form.
func MarshalManifest(m *Manifest) ([]byte, error) {
	data, err := cborEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// UnmarshalManifest decodes a CBOR-encoded Manifest.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}

// Validate checks invariant I5: total size equals the sum of chunk
// sizes, and chunk indices are dense, zero-based, in order.
func (m *Manifest) Validate() error {
	if len(m.Chunks) == 0 {
		return fmt.Errorf("manifest has no chunks")
	}
	var total uint64
	for i, c := range m.Chunks {
		if int(c.Index) != i {
			return fmt.Errorf("chunk %d has out-of-order index %d", i, c.Index)
		}
		if c.Digest.IsZero() {
			return fmt.Errorf("chunk %d has zero digest", i)
		}
		total += uint64(c.Size)
	}
	if total != m.TotalSize {
		return fmt.Errorf("manifest total_size %d does not match sum of chunk sizes %d", m.TotalSize, total)
	}
	return nil
}
