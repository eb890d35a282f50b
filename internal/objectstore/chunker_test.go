// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir string, name string, size int, fill byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := bytes.Repeat([]byte{fill}, size)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStoreFileSmallIsBareChunk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempFile(t, dir, "small.bin", 128, 0xAB)

	digest, manifest, err := StoreFile(s, path)
	if err != nil {
		t.Fatal(err)
	}
	if manifest != nil {
		t.Fatal("small file should not produce a manifest")
	}
	data, err := s.Get(digest)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 128 {
		t.Fatalf("stored object size = %d, want 128", len(data))
	}
}

func TestStoreFileEmptyFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempFile(t, dir, "empty.bin", 0, 0)

	digest, manifest, err := StoreFile(s, path)
	if err != nil {
		t.Fatal(err)
	}
	if manifest != nil {
		t.Fatal("empty file should not produce a manifest")
	}
	data, err := s.Get(digest)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("empty file stored with %d bytes", len(data))
	}
}

func TestStoreFileExactlyOneChunk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	path := writeTempFile(t, dir, "exact.bin", ChunkSize, 0x11)

	digest, manifest, err := StoreFile(s, path)
	if err != nil {
		t.Fatal(err)
	}
	if manifest != nil {
		t.Fatal("a file exactly ChunkSize bytes must not produce a manifest (single bare chunk)")
	}
	data, err := s.Get(digest)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != ChunkSize {
		t.Fatalf("stored size = %d, want %d", len(data), ChunkSize)
	}
}

func TestStoreFileMultiChunkProducesManifest(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	size := ChunkSize*2 + 500
	path := writeTempFile(t, dir, "large.bin", size, 0x42)

	_, manifest, err := StoreFile(s, path)
	if err != nil {
		t.Fatal(err)
	}
	if manifest == nil {
		t.Fatal("multi-chunk file must produce a manifest")
	}
	if len(manifest.Chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(manifest.Chunks))
	}
	if manifest.TotalSize != uint64(size) {
		t.Fatalf("manifest total_size = %d, want %d", manifest.TotalSize, size)
	}
	if manifest.Chunks[0].Size != ChunkSize || manifest.Chunks[1].Size != ChunkSize {
		t.Fatal("first two chunks should be full ChunkSize")
	}
	if manifest.Chunks[2].Size != 500 {
		t.Fatalf("final chunk size = %d, want 500", manifest.Chunks[2].Size)
	}
}

func TestStoreThenRetrieveFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	size := ChunkSize + 777
	src := writeTempFile(t, dir, "original.bin", size, 0x7E)

	digest, manifest, err := StoreFile(s, src)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "reassembled.bin")
	if err := RetrieveFile(s, digest, out, manifest != nil); err != nil {
		t.Fatal(err)
	}

	want, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("reassembled file does not match original")
	}
}

func TestRetrieveFileDetectsChunkCorruption(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	size := ChunkSize + 100
	src := writeTempFile(t, dir, "original.bin", size, 0x5A)

	digest, manifest, err := StoreFile(s, src)
	if err != nil {
		t.Fatal(err)
	}
	if manifest == nil {
		t.Fatal("expected a manifest for a multi-chunk file")
	}
	// Corrupt the first chunk on disk directly.
	chunkPath := s.Path(manifest.Chunks[0].Digest)
	if err := os.WriteFile(chunkPath, []byte("corrupted"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "reassembled.bin")
	if err := RetrieveFile(s, digest, out, true); err == nil {
		t.Fatal("expected error reassembling a file with a corrupted chunk")
	}
}
