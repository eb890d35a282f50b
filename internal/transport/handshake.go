// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"fmt"
	"net"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/peer"
)

// handshake is two plaintext lines exchanged before any sealed
// message: the protocol version, then the sender's age public key.
// The public key has to travel in the clear — a PeerId is a one-way
// HKDF digest of it (internal/peer.derivePeerID), so there is no way
// to address a connection's remote side by identity alone without
// first learning its actual recipient.
func writeLine(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return line[:len(line)-1], nil
}

// DialerHandshake performs the client side of the handshake over an
// already-connected socket: send our version and public key, read the
// peer's, verify its PeerId matches expectedPeerID (the id the peer
// table or configured address list recorded it under), and return a
// ready-to-use Conn.
//
// expectedPeerID may be empty when dialing a peer discovered only by
// address (no prior identity claim to check against, e.g. a fresh
// clone target); the caller then trusts whatever identity answers.
func DialerHandshake(raw net.Conn, identity *peer.Identity, expectedPeerID string) (*Conn, error) {
	bw := bufio.NewWriter(raw)
	br := bufio.NewReader(raw)

	if err := writeLine(bw, ProtocolVersion); err != nil {
		return nil, fmt.Errorf("sending protocol version: %w", err)
	}
	if err := writeLine(bw, identity.Recipient); err != nil {
		return nil, fmt.Errorf("sending public key: %w", err)
	}

	theirVersion, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("reading peer protocol version: %w", err)
	}
	if theirVersion != ProtocolVersion {
		return nil, latticeerr.ProtocolError("peer speaks protocol %q, expected %q", theirVersion, ProtocolVersion)
	}
	theirKey, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("reading peer public key: %w", err)
	}
	recipient, err := peer.ParseRecipient(theirKey)
	if err != nil {
		return nil, latticeerr.ProtocolError("peer sent invalid public key: %v", err)
	}
	theirID, err := peer.DeriveID(theirKey)
	if err != nil {
		return nil, fmt.Errorf("deriving peer id from handshake key: %w", err)
	}
	if expectedPeerID != "" && theirID != expectedPeerID {
		return nil, latticeerr.ProtocolError("peer identified as %s, expected %s", theirID, expectedPeerID)
	}

	return NewConn(raw, identity.AgeIdentity(), recipient, theirID), nil
}

// AccepterHandshake performs the server side, mirroring
// DialerHandshake: read the incoming peer's version and key first
// (so a malformed or wrong-version client can be rejected before we
// commit our own line), then reply.
func AccepterHandshake(raw net.Conn, identity *peer.Identity) (*Conn, error) {
	bw := bufio.NewWriter(raw)
	br := bufio.NewReader(raw)

	theirVersion, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("reading peer protocol version: %w", err)
	}
	if theirVersion != ProtocolVersion {
		return nil, latticeerr.ProtocolError("peer speaks protocol %q, expected %q", theirVersion, ProtocolVersion)
	}
	theirKey, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("reading peer public key: %w", err)
	}
	recipient, err := peer.ParseRecipient(theirKey)
	if err != nil {
		return nil, latticeerr.ProtocolError("peer sent invalid public key: %v", err)
	}
	theirID, err := peer.DeriveID(theirKey)
	if err != nil {
		return nil, fmt.Errorf("deriving peer id from handshake key: %w", err)
	}

	if err := writeLine(bw, ProtocolVersion); err != nil {
		return nil, fmt.Errorf("sending protocol version: %w", err)
	}
	if err := writeLine(bw, identity.Recipient); err != nil {
		return nil, fmt.Errorf("sending public key: %w", err)
	}

	return NewConn(raw, identity.AgeIdentity(), recipient, theirID), nil
}
