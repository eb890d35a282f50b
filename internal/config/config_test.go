// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lattice-vcs/lattice/internal/objectstore"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DiscoveryPort != 7391 {
		t.Errorf("expected discovery_port=7391, got %d", cfg.DiscoveryPort)
	}
	if cfg.FetchConcurrency != 8 {
		t.Errorf("expected fetch_concurrency=8, got %d", cfg.FetchConcurrency)
	}
	if cfg.ChunkSize != objectstore.ChunkSize {
		t.Errorf("expected chunk_size=%d, got %d", objectstore.ChunkSize, cfg.ChunkSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresLatticeConfig(t *testing.T) {
	origConfig := os.Getenv("LATTICE_CONFIG")
	defer os.Setenv("LATTICE_CONFIG", origConfig)
	os.Unsetenv("LATTICE_CONFIG")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when LATTICE_CONFIG not set, got nil")
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lattice.yaml")
	content := "discovery_port: 9000\nfetch_concurrency: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.DiscoveryPort != 9000 {
		t.Errorf("discovery_port = %d, want 9000", cfg.DiscoveryPort)
	}
	if cfg.FetchConcurrency != 4 {
		t.Errorf("fetch_concurrency = %d, want 4", cfg.FetchConcurrency)
	}
	// chunk_size wasn't present in the file, so it stays at the
	// default (and therefore valid) value.
	if cfg.ChunkSize != objectstore.ChunkSize {
		t.Errorf("chunk_size = %d, want %d", cfg.ChunkSize, objectstore.ChunkSize)
	}
}

func TestLoadFile_RejectsMismatchedChunkSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lattice.yaml")
	content := "chunk_size: 2048\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected an error overriding chunk_size away from the fixed chunking boundary")
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
