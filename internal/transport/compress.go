// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoder and zstdDecoder are package-level singletons reused
// across every chunk sent or received — zstd.Encoder/Decoder are both
// safe for concurrent use, and constructing either carries enough
// setup cost to matter on a per-chunk hot path.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("transport: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("transport: zstd decoder initialization failed: " + err.Error())
	}
}

// compressChunk compresses raw chunk bytes for the wire. Compression
// is transport-level only (SPEC_FULL.md §4.F): the digest identifying
// the chunk is always computed over raw, not compressed data, so it
// is safe to skip compression for input that doesn't shrink.
func compressChunk(raw []byte) (data []byte, compressed bool) {
	out := zstdEncoder.EncodeAll(raw, nil)
	if len(out) >= len(raw) {
		return raw, false
	}
	return out, true
}

// CompressChunk is compressChunk, exported for the orchestrator to use
// when building a put_chunk request from a locally stored object.
func CompressChunk(raw []byte) (data []byte, compressed bool) { return compressChunk(raw) }

// DecompressChunk is decompressChunk, exported for the orchestrator to
// use when unpacking a get_chunk response.
func DecompressChunk(payload *ChunkPayload) ([]byte, error) { return decompressChunk(payload) }

// decompressChunk reverses compressChunk, given the original
// (uncompressed) size carried alongside the payload.
func decompressChunk(payload *ChunkPayload) ([]byte, error) {
	if !payload.Compressed {
		return payload.Data, nil
	}
	out, err := zstdDecoder.DecodeAll(payload.Data, make([]byte, 0, payload.RawSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompressing chunk %s: %w", payload.Digest, err)
	}
	if uint32(len(out)) != payload.RawSize {
		return nil, fmt.Errorf("chunk %s decompressed to %d bytes, expected %d", payload.Digest, len(out), payload.RawSize)
	}
	return out, nil
}
