// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/peer"
)

// DefaultTimeout bounds a single Call when the caller's context has no
// earlier deadline of its own (spec.md §4.F: "requests default to a
// 30 second timeout").
const DefaultTimeout = 30 * time.Second

// Client is one dialed connection to a peer, multiplexing any number
// of concurrent Call invocations over it by request id.
type Client struct {
	conn *Conn

	mu      sync.Mutex
	pending map[string]chan *Response
	closed  bool
	readErr error
}

// Dial connects to addr (host:port), performs the handshake, and
// starts the background read loop that demultiplexes responses.
// expectedPeerID, if non-empty, is verified against the identity the
// remote side presents.
func Dial(ctx context.Context, addr string, identity *peer.Identity, expectedPeerID string) (*Client, error) {
	d := net.Dialer{}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, latticeerr.PeerUnreachable("dialing %s: %v", addr, err)
	}
	conn, err := DialerHandshake(raw, identity, expectedPeerID)
	if err != nil {
		raw.Close()
		return nil, err
	}
	c := &Client{conn: conn, pending: make(map[string]chan *Response)}
	go c.readLoop()
	return c, nil
}

// RemotePeerID returns the dialed peer's identity.
func (c *Client) RemotePeerID() string { return c.conn.RemotePeerID() }

// Close closes the underlying connection and fails every call still
// waiting on a response.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.failAll(fmt.Errorf("client closed"))
	return err
}

// Call sends req (assigning a fresh request id if empty) and blocks
// until the matching Response arrives, ctx is cancelled, or
// DefaultTimeout elapses — whichever comes first.
func (c *Client) Call(ctx context.Context, req *Request) (*Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("client is closed")
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	if err := c.conn.WriteRequest(req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, c.readErrOrDefault()
		}
		return resp, nil
	case <-ctx.Done():
		return nil, latticeerr.Timeout("request %s timed out: %w", req.ID, ctx.Err())
	}
}

func (c *Client) readErrOrDefault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	return fmt.Errorf("connection closed")
}

// readLoop runs for the lifetime of the connection, reading responses
// and routing each to the channel Call registered for its request id.
// A response for an id nobody is waiting on (the caller already timed
// out and stopped listening) is silently dropped.
func (c *Client) readLoop() {
	for {
		resp, err := c.conn.ReadResponse()
		if err != nil {
			c.failAll(err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) failAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.readErr = err
	for _, ch := range c.pending {
		close(ch)
	}
}
