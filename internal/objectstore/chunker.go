// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"fmt"
	"io"
	"os"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
)

// ChunkSize is the fixed chunk boundary spec.md §3 pins at 1 MiB.
// Unlike the teacher's content-defined GearHash chunker (calibrated
// for cross-version dedup of shifted content), lattice's spec fixes a
// flat window — simpler, and what the spec's manifest invariants (I5:
// dense zero-based indices, chunk sizes summing to total_size) are
// written against.
const ChunkSize = 1024 * 1024 // 1 MiB

// StoreFile chunks the file at path and writes every chunk (and, for
// multi-chunk files, the manifest) into store. Returns the digest that
// identifies the whole file, plus the Manifest record when the file
// needed one (nil for a file <= ChunkSize). Callers that maintain a
// catalog use the returned Manifest to record the manifest row
// themselves — objectstore has no catalog dependency, so it cannot do
// that itself — rather than re-deriving "is this a manifest" later by
// sniffing the stored bytes, which risks a false positive on a small
// file whose raw content happens to parse as valid CBOR.
func StoreFile(store *Store, path string) (Hash, *Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Hash{}, nil, latticeerr.PathNotFound("%s: no such file", path)
		}
		return Hash{}, nil, latticeerr.IO("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Hash{}, nil, latticeerr.IO("statting %s: %w", path, err)
	}
	if info.IsDir() {
		return Hash{}, nil, latticeerr.PathIsDirectory("%s is a directory", path)
	}

	// info.Size() (not a length-compared io.ReadFull result) decides the
	// single-chunk-vs-manifest split: io.ReadFull returns n==ChunkSize,
	// err==nil for a file of exactly ChunkSize bytes, indistinguishable
	// from a larger file's first read without a second read. Sizing off
	// the stat avoids that ambiguity outright.
	if info.Size() <= ChunkSize {
		buf := make([]byte, info.Size())
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return Hash{}, nil, latticeerr.IO("reading %s: %w", path, err)
		}
		digest, putErr := store.Put(buf[:n])
		if putErr != nil {
			return Hash{}, nil, putErr
		}
		return digest, nil, nil
	}

	buf := make([]byte, ChunkSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Hash{}, nil, latticeerr.IO("reading %s: %w", path, err)
	}

	// File is larger than one chunk: keep reading, chunk by chunk,
	// recording each chunk's digest for the manifest.
	var entries []ManifestChunkEntry
	var totalSize uint64

	first, putErr := store.Put(buf[:n])
	if putErr != nil {
		return Hash{}, nil, putErr
	}
	entries = append(entries, ManifestChunkEntry{Index: 0, Digest: first, Size: uint32(n)})
	totalSize += uint64(n)

	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			digest, putErr := store.Put(buf[:n])
			if putErr != nil {
				return Hash{}, nil, putErr
			}
			entries = append(entries, ManifestChunkEntry{
				Index:  uint32(len(entries)),
				Digest: digest,
				Size:   uint32(n),
			})
			totalSize += uint64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return Hash{}, nil, latticeerr.IO("reading %s: %w", path, err)
		}
	}

	manifest := &Manifest{TotalSize: totalSize, Chunks: entries}
	digest, err := StoreManifest(store, manifest)
	if err != nil {
		return Hash{}, nil, err
	}
	return digest, manifest, nil
}

// StoreManifest serializes and writes a manifest as an object, then
// returns its digest. Exported so the orchestrator can persist a
// manifest it received from a peer (after validating it) using the
// exact same encoding path a local store_file would have produced.
func StoreManifest(store *Store, manifest *Manifest) (Hash, error) {
	if err := manifest.Validate(); err != nil {
		return Hash{}, fmt.Errorf("invalid manifest: %w", err)
	}
	data, err := MarshalManifest(manifest)
	if err != nil {
		return Hash{}, err
	}
	return store.Put(data)
}

// IsManifest reports whether data decodes as a well-formed Manifest.
// Used to disambiguate a digest that the catalog has no manifest row
// for yet — a bare object read straight off disk or received from a
// peer, before anything has told the caller which of the two it is.
func IsManifest(data []byte) (*Manifest, bool) {
	m, err := UnmarshalManifest(data)
	if err != nil {
		return nil, false
	}
	if m.Validate() != nil {
		return nil, false
	}
	return m, true
}

// RetrieveFile reassembles the file identified by digest into outPath,
// using isManifest to decide whether digest names a manifest or a bare
// chunk. isManifest is supplied by the caller (the catalog answers
// this in O(1) via the manifests table) rather than re-derived here,
// since re-deriving it would require reading the object first — which
// this function needs to do anyway, but only once the caller has told
// it which of the two read paths to take.
func RetrieveFile(store *Store, digest Hash, outPath string, isManifest bool) error {
	dir := ""
	if d := dirOf(outPath); d != "" {
		dir = d
	}

	tmp, err := os.CreateTemp(dir, ".lattice-retrieve-*")
	if err != nil {
		return latticeerr.IO("creating temp output file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if !isManifest {
		data, err := store.Get(digest)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return latticeerr.IO("writing %s: %w", outPath, err)
		}
	} else {
		manifestData, err := store.Get(digest)
		if err != nil {
			tmp.Close()
			return err
		}
		manifest, err := UnmarshalManifest(manifestData)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("decoding manifest %s: %w", FormatHash(digest), err)
		}
		if err := manifest.Validate(); err != nil {
			tmp.Close()
			return fmt.Errorf("manifest %s failed validation: %w", FormatHash(digest), err)
		}

		for _, entry := range manifest.Chunks {
			chunk, err := store.Get(entry.Digest)
			if err != nil {
				tmp.Close()
				return err
			}
			if uint32(len(chunk)) != entry.Size {
				tmp.Close()
				return fmt.Errorf("chunk %d size %d does not match manifest size %d", entry.Index, len(chunk), entry.Size)
			}
			if _, err := tmp.Write(chunk); err != nil {
				tmp.Close()
				return latticeerr.IO("writing %s: %w", outPath, err)
			}
		}
	}

	if err := tmp.Close(); err != nil {
		return latticeerr.IO("closing temp output file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return latticeerr.IO("renaming into place at %s: %w", outPath, err)
	}
	success = true
	return nil
}

// dirOf returns the directory component of path, or "." for a bare
// filename (os.CreateTemp treats "" as "use the default temp dir",
// which is wrong here — we want the same filesystem as the final
// destination so the rename is atomic, and a bare filename's directory
// is ".").
func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
