// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	data := []byte("hello lattice")
	digest, err := s.Put(data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(digest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Get returned %q, want %q", got, data)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	data := []byte("repeat me")
	a, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("two Puts of identical data returned different digests: %x vs %x", a, b)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(SumAll([]byte("never stored")))
	kind, ok := latticeerr.KindOf(err)
	if !ok || kind != latticeerr.KindNotFound {
		t.Fatalf("Get on missing object: got %v, want KindNotFound", err)
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	s := newTestStore(t)
	digest, err := s.Put([]byte("intact"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(digest), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = s.Get(digest)
	kind, ok := latticeerr.KindOf(err)
	if !ok || kind != latticeerr.KindCorruptObject {
		t.Fatalf("Get on tampered object: got %v, want KindCorruptObject", err)
	}
}

func TestPutWithDigestRejectsMismatch(t *testing.T) {
	s := newTestStore(t)
	wrong := SumAll([]byte("not the real content"))
	err := s.PutWithDigest(wrong, []byte("actual content"))
	kind, ok := latticeerr.KindOf(err)
	if !ok || kind != latticeerr.KindDigestMismatch {
		t.Fatalf("PutWithDigest mismatch: got %v, want KindDigestMismatch", err)
	}
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	digest := SumAll([]byte("maybe present"))
	if s.Exists(digest) {
		t.Fatal("Exists true before Put")
	}
	if _, err := s.Put([]byte("maybe present")); err != nil {
		t.Fatal(err)
	}
	if !s.Exists(digest) {
		t.Fatal("Exists false after Put")
	}
}

func TestShardedLayout(t *testing.T) {
	s := newTestStore(t)
	digest, err := s.Put([]byte("sharding check"))
	if err != nil {
		t.Fatal(err)
	}
	hex := FormatHash(digest)
	want := filepath.Join(s.Path(digest))
	if want != filepath.Join(s.root, hex[:2], hex[2:]) {
		t.Fatalf("unexpected shard path: %s", want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("object not found at expected shard path: %v", err)
	}
}

func TestConcurrentPutsOfSameContent(t *testing.T) {
	s := newTestStore(t)
	data := []byte("racing writers")
	var wg sync.WaitGroup
	digests := make([]Hash, 16)
	errs := make([]error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			digests[i], errs[i] = s.Put(data)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
		if digests[i] != digests[0] {
			t.Fatalf("goroutine %d produced a different digest", i)
		}
	}
	got, err := s.Get(digests[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Fatal("stored content does not match after concurrent writes")
	}
}
