// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import "testing"

func validManifest() *Manifest {
	return &Manifest{
		TotalSize: 6,
		Chunks: []ManifestChunkEntry{
			{Index: 0, Digest: SumAll([]byte("abc")), Size: 3},
			{Index: 1, Digest: SumAll([]byte("def")), Size: 3},
		},
	}
}

func TestManifestMarshalRoundTrip(t *testing.T) {
	m := validManifest()
	data, err := MarshalManifest(m)
	if err != nil {
		t.Fatalf("MarshalManifest: %v", err)
	}
	got, err := UnmarshalManifest(data)
	if err != nil {
		t.Fatalf("UnmarshalManifest: %v", err)
	}
	if got.TotalSize != m.TotalSize || len(got.Chunks) != len(m.Chunks) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, m)
	}
	for i := range m.Chunks {
		if got.Chunks[i] != m.Chunks[i] {
			t.Fatalf("chunk %d mismatch: got %+v, want %+v", i, got.Chunks[i], m.Chunks[i])
		}
	}
}

func TestMarshalManifestDeterministic(t *testing.T) {
	m := validManifest()
	a, err := MarshalManifest(m)
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalManifest(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatal("encoding the same manifest twice produced different bytes")
	}
}

func TestManifestValidateRejectsEmpty(t *testing.T) {
	m := &Manifest{TotalSize: 0, Chunks: nil}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for manifest with no chunks")
	}
}

func TestManifestValidateRejectsOutOfOrderIndex(t *testing.T) {
	m := validManifest()
	m.Chunks[1].Index = 5
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for out-of-order index")
	}
}

func TestManifestValidateRejectsZeroDigest(t *testing.T) {
	m := validManifest()
	m.Chunks[0].Digest = Hash{}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for zero digest")
	}
}

func TestManifestValidateRejectsSizeMismatch(t *testing.T) {
	m := validManifest()
	m.TotalSize = 999
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for total_size mismatch")
	}
}
