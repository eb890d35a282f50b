// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

// multicastGroup and multicastPort are lattice's IPv4 link-local
// discovery rendezvous point. No existing example repo in the
// retrieval pack ships an mDNS/zeroconf library (the teacher's own
// discovery is Matrix-room-based, not local-network), so discovery
// here is plain UDP multicast announce/listen — the closest stdlib-
// only approximation of spec.md §4.F's "link-local multicast
// discovery mechanism" without introducing an unvetted dependency.
const multicastGroup = "239.255.77.88"

// DefaultDiscoveryPort is used when a Discoverer isn't given an
// explicit port (internal/config's discovery_port override, when set,
// takes precedence — see NewDiscoverer).
const DefaultDiscoveryPort = 7391

// announceInterval is how often a running process re-announces
// itself, so a discoverer that joins after the first announcement
// still finds every live peer within one interval.
const announceInterval = 5 * time.Second

// Discoverer runs the announce and listen loops that populate a Table
// from local-network peers.
type Discoverer struct {
	identity   *Identity
	listenAddr string
	table      *Table
	logger     *slog.Logger
	port       int
}

// NewDiscoverer returns a Discoverer that announces listenAddr (the
// transport's own TCP listen address, "host:port") under identity's
// PeerId, and records peers it hears into table. port is the
// multicast rendezvous port; 0 selects DefaultDiscoveryPort.
func NewDiscoverer(identity *Identity, listenAddr string, table *Table, logger *slog.Logger, port int) *Discoverer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if port == 0 {
		port = DefaultDiscoveryPort
	}
	return &Discoverer{identity: identity, listenAddr: listenAddr, table: table, logger: logger, port: port}
}

// Run announces this process and listens for other announcements
// until ctx is cancelled. The serve command runs it in its own
// goroutine; other commands run it for a short window to seed the
// peer table.
func (d *Discoverer) Run(ctx context.Context) error {
	groupAddr := &net.UDPAddr{IP: net.ParseIP(multicastGroup), Port: d.port}

	listenConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: d.port})
	if err != nil {
		return fmt.Errorf("listening for discovery announcements: %w", err)
	}
	defer listenConn.Close()

	sendConn, err := net.DialUDP("udp4", nil, groupAddr)
	if err != nil {
		return fmt.Errorf("opening discovery announce socket: %w", err)
	}
	defer sendConn.Close()

	go d.announceLoop(ctx, sendConn)
	return d.listenLoop(ctx, listenConn)
}

func (d *Discoverer) announceLoop(ctx context.Context, conn *net.UDPConn) {
	ticker := time.NewTicker(announceInterval)
	defer ticker.Stop()

	announce := func() {
		msg := encodeAnnouncement(d.identity.PeerID, d.listenAddr)
		if _, err := conn.Write(msg); err != nil {
			d.logger.Debug("discovery announce failed", "error", err)
		}
	}
	announce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			announce()
		}
	}
}

func (d *Discoverer) listenLoop(ctx context.Context, conn *net.UDPConn) error {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("reading discovery announcement: %w", err)
		}
		peerID, addr, ok := decodeAnnouncement(buf[:n])
		if !ok || peerID == d.identity.PeerID {
			continue
		}
		d.table.Add(peerID, addr)
		d.logger.Info("discovered peer", "peer_id", peerID, "address", addr)
	}
}

// encodeAnnouncement/decodeAnnouncement use a trivial "peerID@address"
// wire form — discovery announcements are a local, untrusted broadcast
// used only to seed the peer table with candidate addresses; every
// subsequent exchange with a discovered peer goes through the
// authenticated, encrypted transport (§4.F), so this framing does not
// need to be itself secure.
func encodeAnnouncement(peerID, addr string) []byte {
	return []byte("lattice1 " + peerID + "@" + addr)
}

func decodeAnnouncement(data []byte) (peerID, addr string, ok bool) {
	s := strings.TrimPrefix(string(data), "lattice1 ")
	if s == string(data) {
		return "", "", false
	}
	idx := strings.LastIndexByte(s, '@')
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

// AnnounceAddress formats a net.Addr as the address string stored in
// the peer table and sent in announcements.
func AnnounceAddress(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return net.JoinHostPort(host, port)
}
