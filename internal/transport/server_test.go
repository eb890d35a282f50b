// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
)

// fixtureHandler is a minimal in-memory Handler for exercising the
// wire protocol end to end without a real repository.
type fixtureHandler struct {
	mu     sync.Mutex
	chunks map[string][]byte
}

func newFixtureHandler() *fixtureHandler {
	return &fixtureHandler{chunks: make(map[string][]byte)}
}

func (f *fixtureHandler) GetChunk(ctx context.Context, digest string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.chunks[digest]
	return data, ok, nil
}

func (f *fixtureHandler) GetManifest(ctx context.Context, digest string) (*ManifestPayload, bool, error) {
	return nil, false, nil
}

func (f *fixtureHandler) ListCommits(ctx context.Context) (string, []CommitSummaryWire, error) {
	return "main", nil, nil
}

func (f *fixtureHandler) GetCommit(ctx context.Context, digest string) (*CommitPayload, bool, error) {
	return nil, false, nil
}

func (f *fixtureHandler) PutCommit(ctx context.Context, commit *CommitPayload) error {
	return nil
}

func (f *fixtureHandler) PutChunk(ctx context.Context, digest string, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[digest] = raw
	return nil
}

func TestServeAndCallRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverID := testIdentity(t)
	clientID := testIdentity(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	handler := newFixtureHandler()
	handler.chunks["aaaa"] = []byte("hello chunk data, repeated for compression. hello chunk data, repeated for compression.")

	go Serve(ctx, ln, serverID, handler, nil)

	client, err := Dial(ctx, ln.Addr().String(), clientID, serverID.PeerID)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	resp, err := client.Call(ctx, &Request{Kind: KindGetChunk, Digest: "aaaa"})
	if err != nil {
		t.Fatalf("Call get_chunk: %v", err)
	}
	if !resp.Found || resp.Chunk == nil {
		t.Fatal("expected chunk to be found")
	}
	got, err := decompressChunk(resp.Chunk)
	if err != nil {
		t.Fatalf("decompressChunk: %v", err)
	}
	if !bytes.Equal(got, handler.chunks["aaaa"]) {
		t.Fatalf("got %q, want %q", got, handler.chunks["aaaa"])
	}

	missResp, err := client.Call(ctx, &Request{Kind: KindGetChunk, Digest: "bbbb"})
	if err != nil {
		t.Fatal(err)
	}
	if missResp.Found {
		t.Fatal("expected not-found for unknown digest")
	}

	raw := []byte("new chunk content")
	putResp, err := client.Call(ctx, &Request{
		Kind:   KindPutChunk,
		Digest: "cccc",
		Chunk:  &ChunkPayload{Digest: "cccc", Data: raw, Compressed: false, RawSize: uint32(len(raw))},
	})
	if err != nil {
		t.Fatalf("Call put_chunk: %v", err)
	}
	if !putResp.Found {
		t.Fatalf("put_chunk response: %+v", putResp)
	}
	handler.mu.Lock()
	stored := handler.chunks["cccc"]
	handler.mu.Unlock()
	if !bytes.Equal(stored, raw) {
		t.Fatalf("stored chunk = %q, want %q", stored, raw)
	}
}

func TestConcurrentCallsMultiplexOverOneConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverID := testIdentity(t)
	clientID := testIdentity(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	handler := newFixtureHandler()
	for i := 0; i < 20; i++ {
		handler.chunks[string(rune('a'+i))] = []byte{byte(i)}
	}

	go Serve(ctx, ln, serverID, handler, nil)

	client, err := Dial(ctx, ln.Addr().String(), clientID, serverID.PeerID)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			digest := string(rune('a' + i))
			resp, err := client.Call(ctx, &Request{Kind: KindGetChunk, Digest: digest})
			if err != nil {
				errs <- err
				return
			}
			if !resp.Found || resp.Chunk.Data[0] != byte(i) {
				errs <- fmt.Errorf("digest %s: unexpected response %+v", digest, resp)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent call failed: %v", err)
		}
	}
}
