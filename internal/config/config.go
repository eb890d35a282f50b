// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for lattice.
//
// Configuration is loaded from a single file specified by:
//   - LATTICE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides. Every
// field has a hardcoded default, so the file itself is entirely
// optional — it exists to let an operator override a handful of
// network-tuning knobs, not to configure lattice's on-disk format.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lattice-vcs/lattice/internal/objectstore"
	"github.com/lattice-vcs/lattice/internal/orchestrator"
	"github.com/lattice-vcs/lattice/internal/peer"
)

// Config is the tunable network configuration for a lattice repository.
// Nothing here affects the on-disk repository format (that's pinned by
// spec.md's invariants, not configurable); these are per-process
// network knobs only.
type Config struct {
	// DiscoveryPort is the UDP multicast port peer discovery announces
	// on and listens on.
	DiscoveryPort int `yaml:"discovery_port"`

	// FetchConcurrency bounds how many chunks Fetch/Pull/Push request
	// in flight at once.
	FetchConcurrency int `yaml:"fetch_concurrency"`

	// ChunkSize must equal objectstore.ChunkSize. It exists in the file
	// schema so an operator who misremembers the fixed chunking
	// boundary gets a clear validation error instead of silently
	// producing digests that don't match any other peer's, rather than
	// as something this field actually changes at runtime.
	ChunkSize int `yaml:"chunk_size"`
}

// Default returns the configuration used when no file is loaded, and
// the base every loaded file is merged onto.
func Default() *Config {
	return &Config{
		DiscoveryPort:    peer.DefaultDiscoveryPort,
		FetchConcurrency: orchestrator.DefaultFetchConcurrency,
		ChunkSize:        objectstore.ChunkSize,
	}
}

// Load loads configuration from the LATTICE_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit path.
// There is no fallback if LATTICE_CONFIG is unset — callers that accept
// an explicit --config flag should check it first and call LoadFile
// directly, falling back to Load only when no flag was given.
func Load() (*Config, error) {
	path := os.Getenv("LATTICE_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("LATTICE_CONFIG environment variable not set; " +
			"set it to the path of your lattice.yaml config file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging it
// onto Default().
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DiscoveryPort <= 0 || c.DiscoveryPort > 65535 {
		return fmt.Errorf("discovery_port must be between 1 and 65535, got %d", c.DiscoveryPort)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch_concurrency must be positive, got %d", c.FetchConcurrency)
	}
	if c.ChunkSize != objectstore.ChunkSize {
		return fmt.Errorf("chunk_size must be %d (the fixed chunk boundary every lattice peer chunks "+
			"content at); overriding it would make your digests incompatible with every other peer", objectstore.ChunkSize)
	}
	return nil
}
