// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net"
	"testing"

	"github.com/lattice-vcs/lattice/internal/peer"
)

func testIdentity(t *testing.T) *peer.Identity {
	t.Helper()
	id, err := peer.LoadOrCreateIdentity(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity: %v", err)
	}
	return id
}

func TestConnRoundTrip(t *testing.T) {
	clientID := testIdentity(t)
	serverID := testIdentity(t)

	clientRaw, serverRaw := net.Pipe()
	defer clientRaw.Close()
	defer serverRaw.Close()

	serverRecipient, err := peer.ParseRecipient(clientID.Recipient)
	if err != nil {
		t.Fatal(err)
	}
	clientRecipient, err := peer.ParseRecipient(serverID.Recipient)
	if err != nil {
		t.Fatal(err)
	}

	clientConn := NewConn(clientRaw, clientID.AgeIdentity(), clientRecipient, serverID.PeerID)
	serverConn := NewConn(serverRaw, serverID.AgeIdentity(), serverRecipient, clientID.PeerID)

	req := &Request{ID: "abc123", Kind: KindGetChunk, Digest: "deadbeef"}
	go func() {
		if err := clientConn.WriteRequest(req); err != nil {
			t.Errorf("WriteRequest: %v", err)
		}
	}()

	got, err := serverConn.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if got.ID != req.ID || got.Kind != req.Kind || got.Digest != req.Digest {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestHandshakeVerifiesPeerID(t *testing.T) {
	clientID := testIdentity(t)
	serverID := testIdentity(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			accepted <- err
			return
		}
		defer raw.Close()
		_, err = AccepterHandshake(raw, serverID)
		accepted <- err
	}()

	raw, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()

	if _, err := DialerHandshake(raw, clientID, "wrong-peer-id"); err == nil {
		t.Fatal("expected handshake failure on mismatched expected peer id")
	}
	<-accepted
}

func TestHandshakeSucceedsWithCorrectPeerID(t *testing.T) {
	clientID := testIdentity(t)
	serverID := testIdentity(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	serverDone := make(chan *Conn, 1)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			serverDone <- nil
			return
		}
		conn, err := AccepterHandshake(raw, serverID)
		if err != nil {
			t.Errorf("AccepterHandshake: %v", err)
		}
		serverDone <- conn
	}()

	raw, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	clientConn, err := DialerHandshake(raw, clientID, serverID.PeerID)
	if err != nil {
		t.Fatalf("DialerHandshake: %v", err)
	}
	defer clientConn.Close()

	serverConn := <-serverDone
	if serverConn == nil {
		t.Fatal("server side handshake failed")
	}
	defer serverConn.Close()

	if clientConn.RemotePeerID() != serverID.PeerID {
		t.Fatalf("client resolved remote peer id %q, want %q", clientConn.RemotePeerID(), serverID.PeerID)
	}
	if serverConn.RemotePeerID() != clientID.PeerID {
		t.Fatalf("server resolved remote peer id %q, want %q", serverConn.RemotePeerID(), clientID.PeerID)
	}
}
