// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
)

// Store is the content-addressed object store rooted at a directory.
// Keys are digests; objects are fanned out by the first two hex
// characters of their digest to keep per-directory file counts
// bounded — spec.md §4.B's "objects/<dd>/<remaining62hex>" layout.
//
// Store holds no long-lived locks. Correctness under concurrent
// writers comes entirely from per-key atomic rename plus the
// immutability of objects once written (spec.md §5).
type Store struct {
	root string
}

// Open returns a Store rooted at dir, creating the directory if it
// does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, latticeerr.IO("creating object store directory %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Path returns the sharded on-disk path for a digest, exported so
// callers (and tests) can locate an object's file on disk.
func (s *Store) Path(digest Hash) string {
	hex := FormatHash(digest)
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Put computes the digest of data and writes it to the store if not
// already present. Returns the digest either way (idempotent) — spec
// "put(bytes) -> Digest" semantics: no write occurs when the digest
// already exists on disk.
func (s *Store) Put(data []byte) (Hash, error) {
	digest := SumAll(data)
	if err := s.putWithDigest(digest, data); err != nil {
		return Hash{}, err
	}
	return digest, nil
}

// PutWithDigest writes data under the caller-asserted digest, failing
// with latticeerr.KindDigestMismatch if data does not actually hash to
// expected. Used by the orchestrator when persisting objects received
// from a peer, where the caller already knows (and must verify) the
// expected digest.
func (s *Store) PutWithDigest(expected Hash, data []byte) error {
	actual := SumAll(data)
	if actual != expected {
		return latticeerr.DigestMismatch("object data hashes to %s, expected %s", FormatHash(actual), FormatHash(expected))
	}
	return s.putWithDigest(expected, data)
}

// putWithDigest performs the actual write-to-temp-then-rename. Safe
// under arbitrary concurrent callers for the same or different
// digests: two racing writers of the same bytes both compute the same
// digest, both write distinct temp files, and whichever rename loses
// the race finds the destination already populated — os.Rename on
// Unix silently replaces an existing regular file with identical
// content, and a pre-rename existence check for the common case avoids
// the temp-file churn entirely.
func (s *Store) putWithDigest(digest Hash, data []byte) error {
	finalPath := s.Path(digest)
	if _, err := os.Stat(finalPath); err == nil {
		// Already present. Objects are immutable, so no need to
		// re-verify content — this is the dedup fast path (spec P4).
		return nil
	}

	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return latticeerr.IO("creating shard directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return latticeerr.IO("creating temp object file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return latticeerr.IO("writing temp object file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return latticeerr.IO("closing temp object file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return latticeerr.IO("renaming object into place at %s: %w", finalPath, err)
	}
	success = true
	return nil
}

// Get reads an object and verifies it re-hashes to its own key (spec
// invariant I2). Returns latticeerr.KindNotFound if absent, or
// latticeerr.KindCorruptObject if the stored bytes no longer match
// their key (disk corruption, or a filesystem bug).
func (s *Store) Get(digest Hash) ([]byte, error) {
	data, err := os.ReadFile(s.Path(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, latticeerr.NotFound("object %s not found", FormatHash(digest))
		}
		return nil, latticeerr.IO("reading object %s: %w", FormatHash(digest), err)
	}
	if SumAll(data) != digest {
		return nil, latticeerr.CorruptObject("object %s failed integrity check on read", FormatHash(digest))
	}
	return data, nil
}

// OpenReader opens an object for streaming reads without loading it
// entirely into memory. Integrity verification for streamed reads is
// the caller's responsibility (full re-hash of a stream requires
// reading it once already, so callers that need verification should
// read through a io.TeeReader into a Hasher, or call Get for small
// objects).
func (s *Store) OpenReader(digest Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, latticeerr.NotFound("object %s not found", FormatHash(digest))
		}
		return nil, latticeerr.IO("opening object %s: %w", FormatHash(digest), err)
	}
	return f, nil
}

// Exists reports whether an object is present. A true result is only
// ever used as an optimization (skip a redundant Put/fetch) — spec.md
// §5: "exists before put is an optimization, never a correctness
// requirement."
func (s *Store) Exists(digest Hash) bool {
	_, err := os.Stat(s.Path(digest))
	return err == nil
}

// ResolvePrefix scans the single shard directory a >=2-character hex
// prefix selects and returns the unique digest whose hex form starts
// with prefix. Used as a fallback by callers that have already failed
// to resolve prefix against the catalog's own digest tables — this
// covers a digest that exists in the store but isn't yet referenced by
// any commit, manifest, or branch (a chunk fetched standalone).
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	if len(prefix) < 2 {
		return Hash{}, fmt.Errorf("digest prefix %q is too short to resolve", prefix)
	}
	shardDir := filepath.Join(s.root, prefix[:2])
	entries, err := os.ReadDir(shardDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Hash{}, latticeerr.NotFound("no object matches reference %q", prefix)
		}
		return Hash{}, latticeerr.IO("reading shard directory %s: %w", shardDir, err)
	}

	rest := ""
	if len(prefix) > 2 {
		rest = prefix[2:]
	}
	var match string
	count := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), rest) {
			match = entry.Name()
			count++
		}
	}
	switch count {
	case 0:
		return Hash{}, latticeerr.NotFound("no object matches reference %q", prefix)
	case 1:
		return ParseHash(prefix[:2] + match)
	default:
		return Hash{}, latticeerr.AmbiguousReference("reference %q matches %d objects", prefix, count)
	}
}

// Size returns the on-disk size of an object in bytes.
func (s *Store) Size(digest Hash) (int64, error) {
	info, err := os.Stat(s.Path(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, latticeerr.NotFound("object %s not found", FormatHash(digest))
		}
		return 0, latticeerr.IO("statting object %s: %w", FormatHash(digest), err)
	}
	return info.Size(), nil
}

// ReadAll is a convenience wrapper for reading an object via a fresh
// io.Reader interface, such as one returned by OpenReader.
func ReadAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("reading object stream: %w", err)
	}
	return buf.Bytes(), nil
}
