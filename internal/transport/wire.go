// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements lattice's peer-to-peer wire protocol:
// a single persistent TCP connection carrying age-sealed, length-
// prefixed CBOR request/response envelopes, multiplexed by request id
// so many fetches can be in flight at once over one connection.
package transport

// ProtocolVersion is exchanged as a plaintext line immediately after
// the TCP connection opens, before any sealed message is sent. A peer
// that does not see this exact string closes the connection rather
// than risk feeding non-protocol bytes into the age unsealer.
const ProtocolVersion = "lattice/1"

// Kind identifies the operation a Request performs. The same set of
// kinds appears in both directions of a push: PutCommit/PutChunk are
// symmetric with GetCommit/GetChunk, since a push is just a pull run
// by the side that has the new data (SPEC_FULL.md §4.F).
type Kind string

const (
	KindGetChunk    Kind = "get_chunk"
	KindGetManifest Kind = "get_manifest"
	KindListCommits Kind = "list_commits"
	KindGetCommit   Kind = "get_commit"
	KindPutCommit   Kind = "put_commit"
	KindPutChunk    Kind = "put_chunk"
)

// Request is one multiplexed call on the connection. ID is a fresh
// uuid per call, echoed back on the matching Response so the client's
// dispatch table can route it regardless of arrival order.
type Request struct {
	ID     string `cbor:"id"`
	Kind   Kind   `cbor:"kind"`
	Digest string `cbor:"digest,omitempty"`

	// Chunk carries the payload for a put_chunk request. Data is
	// zstd-compressed on the wire when that makes it smaller (Compressed
	// says which); the sender computes Digest from
	// the uncompressed bytes before compressing, so compression never
	// touches the value identity.
	Chunk *ChunkPayload `cbor:"chunk,omitempty"`

	// Commit carries the payload for a put_commit request.
	Commit *CommitPayload `cbor:"commit,omitempty"`
}

// ChunkPayload is a chunk's digest and (possibly compressed) bytes,
// shared by get_chunk's response and put_chunk's request.
type ChunkPayload struct {
	Digest     string `cbor:"digest"`
	Data       []byte `cbor:"data"`
	Compressed bool   `cbor:"compressed"`
	RawSize    uint32 `cbor:"raw_size"`
}

// ManifestPayload mirrors objectstore.Manifest on the wire, so the
// transport package never has to import the catalog package to
// interpret what it is shipping.
type ManifestPayload struct {
	TotalSize uint64              `cbor:"total_size"`
	Chunks    []ManifestChunkWire `cbor:"chunks"`
}

// ManifestChunkWire mirrors objectstore.ManifestChunkEntry.
type ManifestChunkWire struct {
	Index  uint32 `cbor:"index"`
	Digest string `cbor:"digest"`
	Size   uint32 `cbor:"size"`
}

// FileEntryWire mirrors catalog.CommitFile.
type FileEntryWire struct {
	Path   string `cbor:"path"`
	Digest string `cbor:"digest"`
	Size   uint64 `cbor:"size"`
}

// CommitPayload mirrors catalog.CommitRecord, used both by
// get_commit's response and put_commit's request.
type CommitPayload struct {
	Digest    string          `cbor:"digest"`
	Message   string          `cbor:"message"`
	Timestamp string          `cbor:"timestamp"`
	Parent    string          `cbor:"parent,omitempty"`
	Files     []FileEntryWire `cbor:"files"`
}

// CommitSummaryWire is the abbreviated commit record returned in bulk
// by list_commits — digest, message, timestamp, and parent only, no
// file set, since a caller walking history to find a divergence point
// does not need every file entry of every ancestor.
type CommitSummaryWire struct {
	Digest    string `cbor:"digest"`
	Message   string `cbor:"message"`
	Timestamp string `cbor:"timestamp"`
	Parent    string `cbor:"parent,omitempty"`
}

// Response answers the Request with the same ID. The payload fields
// populated match the request Kind (list_commits sets both Commits and
// Branch; put_* responses carry none). Found is false, with Error
// empty, when the requested digest or ref is absent; Error is set, with
// Found false, when the request itself failed.
type Response struct {
	ID    string `cbor:"id"`
	Found bool   `cbor:"found"`
	Error string `cbor:"error,omitempty"`

	Chunk    *ChunkPayload       `cbor:"chunk,omitempty"`
	Manifest *ManifestPayload    `cbor:"manifest,omitempty"`
	Commit   *CommitPayload      `cbor:"commit,omitempty"`
	Commits  []CommitSummaryWire `cbor:"commits,omitempty"`

	// Branch is the name of the branch the list_commits response
	// enumerates (the peer's currently checked-out branch) — clone
	// uses this to set the new local repository's HEAD to match the
	// source, per spec.md §4.G.
	Branch string `cbor:"branch,omitempty"`
}
