// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lattice-vcs/lattice/internal/config"
	"github.com/lattice-vcs/lattice/internal/peer"
	"github.com/lattice-vcs/lattice/internal/repo"
)

// env bundles the pieces every command needs: the process-wide config
// and logger, and (lazily, since init/serve don't all need every
// piece) the open repository and this process's identity. Built once
// in main and threaded through closures rather than globals.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newEnv(configPath string, logger *slog.Logger) (*env, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// loadConfig resolves --config over LATTICE_CONFIG over defaults, per
// internal/config's "no implicit discovery" principle: an explicit
// flag always wins, and with neither, every field keeps its hardcoded
// default rather than erroring.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		if os.Getenv("LATTICE_CONFIG") == "" {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// openRepo opens the repository rooted at the current working
// directory, the only root commands other than init and clone operate
// against.
func (e *env) openRepo() (*repo.Repository, error) {
	return repo.Open(".", e.logger)
}

// identity loads or creates this process's persistent keypair,
// rooted alongside the repository at root.
func (e *env) identity(root string) (*peer.Identity, error) {
	return peer.LoadOrCreateIdentity(root)
}

// seedPeerTable runs discovery for a short fixed window to populate
// table with whatever peers announce themselves on the local network,
// then returns. listenAddr is this process's own announced address
// ("" for a client that isn't also serving).
func (e *env) seedPeerTable(ctx context.Context, id *peer.Identity, listenAddr string, table *peer.Table, window time.Duration) {
	discoverCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	discoverer := peer.NewDiscoverer(id, listenAddr, table, e.logger, e.cfg.DiscoveryPort)
	discoverer.Run(discoverCtx) //nolint:errcheck // best-effort: a peers/fetch/pull invocation still works from explicit addresses if discovery fails
}

const discoveryWindow = 2 * time.Second
