// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package peer implements lattice's peer identity, persistence, and
// discovery: a per-process age X25519 keypair, the PeerId derived from
// it, and a mutex-guarded table of known peers and their addresses.
package peer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
	"golang.org/x/crypto/hkdf"
)

// identityFileName is the path, relative to a repository root, where
// the process's persistent age identity is stored.
const identityFileName = ".lattice/identity"

// peerIDInfo is the HKDF domain-separation tag for deriving a PeerId
// from an age public key. Changing it would change every process's
// PeerId on next load, so it is pinned like a format version.
var peerIDInfo = []byte("lattice.peer.id.v1")

// Identity is a process's persistent age X25519 keypair plus the
// PeerId derived from its public half.
type Identity struct {
	identity  *age.X25519Identity
	Recipient string
	PeerID    string
}

// LoadOrCreateIdentity reads the identity file under root, generating
// and persisting a fresh keypair on first run (mirrors the teacher's
// lib/sealed.GenerateKeypair, minus the mmap-guarded secret storage —
// lattice's identity key protects transport confidentiality, not
// credential material, so plain file permissions are adequate).
func LoadOrCreateIdentity(root string) (*Identity, error) {
	path := filepath.Join(root, identityFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		id, err := age.ParseX25519Identity(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
		}
		return newIdentity(id)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading identity file %s: %w", path, err)
	}

	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating identity directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id.String()), 0o600); err != nil {
		return nil, fmt.Errorf("writing identity file %s: %w", path, err)
	}
	return newIdentity(id)
}

func newIdentity(id *age.X25519Identity) (*Identity, error) {
	recipient := id.Recipient().String()
	peerID, err := derivePeerID(recipient)
	if err != nil {
		return nil, err
	}
	return &Identity{identity: id, Recipient: recipient, PeerID: peerID}, nil
}

// AgeIdentity exposes the underlying age identity for decrypting
// inbound transport messages.
func (id *Identity) AgeIdentity() *age.X25519Identity { return id.identity }

// derivePeerID computes the stable, printable PeerId for a public key:
// HKDF-SHA256 over the recipient string with a fixed domain tag, then
// hex-encoded. HKDF (rather than a bare SHA-256) follows the domain-
// separated derivation convention the teacher's key-derivation code
// uses throughout (every derived key carries an info tag binding it to
// one purpose), even though a single output is derived here.
func derivePeerID(recipient string) (string, error) {
	reader := hkdf.New(sha256.New, []byte(recipient), nil, peerIDInfo)
	out := make([]byte, sha256.Size)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", fmt.Errorf("deriving peer id: %w", err)
	}
	return hex.EncodeToString(out), nil
}

// DeriveID computes the PeerId for an arbitrary age public key string,
// exported for the transport handshake, which must derive a PeerId
// from the key a just-connected peer presents before it can check
// that key against an expected identity.
func DeriveID(recipient string) (string, error) {
	return derivePeerID(recipient)
}

// ParseRecipient parses an age public key string, used by the
// transport handshake to read the key a peer presents.
func ParseRecipient(s string) (age.Recipient, error) {
	r, err := age.ParseX25519Recipient(s)
	if err != nil {
		return nil, fmt.Errorf("parsing peer public key %q: %w", s, err)
	}
	return r, nil
}
