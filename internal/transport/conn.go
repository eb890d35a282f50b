// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"filippo.io/age"
	"github.com/fxamacker/cbor/v2"
)

// MaxMessageSize bounds a single sealed, length-prefixed message. A
// put_chunk request carries at most one CHUNK_SIZE chunk (1 MiB) plus
// CBOR and age framing overhead; 4 MiB leaves generous headroom
// without letting a hostile peer force an unbounded allocation.
const MaxMessageSize = 4 * 1024 * 1024

// Conn is one peer-to-peer connection: a framed, age-sealed CBOR
// Request/Response channel over a net.Conn. Every message — both
// directions — is individually encrypted to the connection's remote
// peer and decryptable only by its local identity (SPEC_FULL.md §4.F:
// transport confidentiality comes from identity keys, not a
// connection-level TLS handshake).
type Conn struct {
	raw      net.Conn
	local    *age.X25519Identity
	remote   age.Recipient
	remoteID string

	// writeMu serializes outbound frames: a server handles many
	// in-flight requests on one connection concurrently (one
	// goroutine per request), but they all write responses onto the
	// same underlying socket.
	writeMu sync.Mutex
}

// NewConn wraps an already-connected, version-negotiated socket.
// local decrypts inbound messages; remote encrypts outbound ones.
func NewConn(raw net.Conn, local *age.X25519Identity, remote age.Recipient, remoteID string) *Conn {
	return &Conn{raw: raw, local: local, remote: remote, remoteID: remoteID}
}

// RemotePeerID returns the PeerId this connection was dialed to or
// accepted from, for logging and peer-table bookkeeping.
func (c *Conn) RemotePeerID() string { return c.remoteID }

// Close closes the underlying socket.
func (c *Conn) Close() error { return c.raw.Close() }

// WriteRequest seals and sends a Request.
func (c *Conn) WriteRequest(req *Request) error { return c.writeSealed(req) }

// WriteResponse seals and sends a Response.
func (c *Conn) WriteResponse(resp *Response) error { return c.writeSealed(resp) }

// ReadRequest reads and unseals the next Request.
func (c *Conn) ReadRequest() (*Request, error) {
	var req Request
	if err := c.readSealed(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ReadResponse reads and unseals the next Response.
func (c *Conn) ReadResponse() (*Response, error) {
	var resp Response
	if err := c.readSealed(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// writeSealed encodes v as CBOR, seals it to the remote recipient, and
// writes the ciphertext as a single 4-byte-length-prefixed frame —
// the same length-prefixed-CBOR idiom as an unencrypted wire message,
// with an age seal/unseal step on either side of the framing.
func (c *Conn) writeSealed(v any) error {
	plaintext, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, c.remote)
	if err != nil {
		return fmt.Errorf("opening age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("sealing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing sealed message: %w", err)
	}

	if sealed.Len() > MaxMessageSize {
		return fmt.Errorf("sealed message is %d bytes, exceeds maximum %d", sealed.Len(), MaxMessageSize)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(sealed.Len()))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.raw.Write(header[:]); err != nil {
		return fmt.Errorf("writing message length: %w", err)
	}
	if _, err := c.raw.Write(sealed.Bytes()); err != nil {
		return fmt.Errorf("writing sealed message body: %w", err)
	}
	return nil
}

// readSealed reads the next length-prefixed frame, unseals it with
// the local identity, and decodes the plaintext CBOR into v.
func (c *Conn) readSealed(v any) error {
	var header [4]byte
	if _, err := io.ReadFull(c.raw, header[:]); err != nil {
		return fmt.Errorf("reading message length: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxMessageSize {
		return fmt.Errorf("message size %d exceeds maximum %d", length, MaxMessageSize)
	}

	sealed := make([]byte, length)
	if _, err := io.ReadFull(c.raw, sealed); err != nil {
		return fmt.Errorf("reading sealed message body: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), c.local)
	if err != nil {
		return fmt.Errorf("opening age decryptor: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unsealing message: %w", err)
	}

	if err := cbor.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}
	return nil
}
