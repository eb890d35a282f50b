// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/peer"
)

// Handler answers one side of every RPC pair in SPEC_FULL.md §4.F/§4.G.
// The orchestrator implements it against a live *repo.Repository; tests
// can implement it against an in-memory fixture.
type Handler interface {
	GetChunk(ctx context.Context, digest string) (raw []byte, found bool, err error)
	GetManifest(ctx context.Context, digest string) (*ManifestPayload, bool, error)
	ListCommits(ctx context.Context) (branch string, commits []CommitSummaryWire, err error)
	GetCommit(ctx context.Context, digest string) (*CommitPayload, bool, error)
	PutCommit(ctx context.Context, commit *CommitPayload) error
	PutChunk(ctx context.Context, digest string, raw []byte) error
}

// Serve accepts connections on ln until ctx is cancelled, handshaking
// each and dispatching its requests to handler. Each accepted
// connection is served in its own goroutine; within a connection,
// each request is also dispatched to its own goroutine so a slow
// get_chunk does not head-of-line block a concurrent get_manifest on
// the same socket (spec.md §5's multiplexed single connection).
func Serve(ctx context.Context, ln net.Listener, identity *peer.Identity, handler Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go serveConn(ctx, raw, identity, handler, logger)
	}
}

func serveConn(ctx context.Context, raw net.Conn, identity *peer.Identity, handler Handler, logger *slog.Logger) {
	defer raw.Close()

	conn, err := AccepterHandshake(raw, identity)
	if err != nil {
		logger.Warn("transport handshake failed", "error", err, "remote_addr", raw.RemoteAddr())
		return
	}
	logger.Info("peer connected", "peer_id", conn.RemotePeerID(), "remote_addr", raw.RemoteAddr())

	for {
		req, err := conn.ReadRequest()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Debug("connection closed", "peer_id", conn.RemotePeerID(), "error", err)
			}
			return
		}
		go handleRequest(ctx, conn, req, handler, logger)
	}
}

func handleRequest(ctx context.Context, conn *Conn, req *Request, handler Handler, logger *slog.Logger) {
	resp := dispatch(ctx, req, handler)
	resp.ID = req.ID
	if err := conn.WriteResponse(resp); err != nil {
		logger.Debug("writing response failed", "peer_id", conn.RemotePeerID(), "request_id", req.ID, "error", err)
	}
}

func dispatch(ctx context.Context, req *Request, handler Handler) *Response {
	switch req.Kind {
	case KindGetChunk:
		raw, found, err := handler.GetChunk(ctx, req.Digest)
		if err != nil {
			return errorResponse(err)
		}
		if !found {
			return &Response{Found: false}
		}
		data, compressed := compressChunk(raw)
		return &Response{Found: true, Chunk: &ChunkPayload{
			Digest: req.Digest, Data: data, Compressed: compressed, RawSize: uint32(len(raw)),
		}}

	case KindGetManifest:
		manifest, found, err := handler.GetManifest(ctx, req.Digest)
		if err != nil {
			return errorResponse(err)
		}
		return &Response{Found: found, Manifest: manifest}

	case KindListCommits:
		branch, commits, err := handler.ListCommits(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return &Response{Found: true, Commits: commits, Branch: branch}

	case KindGetCommit:
		commit, found, err := handler.GetCommit(ctx, req.Digest)
		if err != nil {
			return errorResponse(err)
		}
		return &Response{Found: found, Commit: commit}

	case KindPutCommit:
		if req.Commit == nil {
			return errorResponse(latticeerr.ProtocolError("put_commit request missing commit payload"))
		}
		if err := handler.PutCommit(ctx, req.Commit); err != nil {
			return errorResponse(err)
		}
		return &Response{Found: true}

	case KindPutChunk:
		if req.Chunk == nil {
			return errorResponse(latticeerr.ProtocolError("put_chunk request missing chunk payload"))
		}
		raw, err := decompressChunk(req.Chunk)
		if err != nil {
			return errorResponse(latticeerr.CorruptTransfer("%v", err))
		}
		if err := handler.PutChunk(ctx, req.Chunk.Digest, raw); err != nil {
			return errorResponse(err)
		}
		return &Response{Found: true}

	default:
		return errorResponse(latticeerr.ProtocolError("unknown request kind %q", req.Kind))
	}
}

func errorResponse(err error) *Response {
	return &Response{Found: false, Error: err.Error()}
}
