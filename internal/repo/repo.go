// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package repo implements the Repository Facade (spec.md §4.E): the
// only entry point for local commands, coordinating the object store
// and catalog to provide init/add/status/commit/log/diff/branch/
// checkout/amend/chunks.
package repo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lattice-vcs/lattice/internal/catalog"
	"github.com/lattice-vcs/lattice/internal/latticeerr"
	"github.com/lattice-vcs/lattice/internal/objectstore"
)

const (
	objectsDirName = "objects"
	catalogName    = "db.sqlite"
	headFileName   = "HEAD"
)

// Repository is an open lattice repository rooted at a directory.
type Repository struct {
	root    string
	store   *objectstore.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// Root returns the repository's root directory.
func (r *Repository) Root() string { return r.root }

// Store returns the underlying object store, for callers (the
// orchestrator) that need direct chunk-level access alongside the
// facade's higher-level operations.
func (r *Repository) Store() *objectstore.Store { return r.store }

// Catalog returns the underlying catalog, for the same reason.
func (r *Repository) Catalog() *catalog.Catalog { return r.catalog }

func headPath(root string) string { return filepath.Join(root, headFileName) }

// Init creates a new repository at root: the objects/ directory, the
// catalog file seeded with branch "main" and no commits, and a HEAD
// file naming "main". Fails with latticeerr.KindInitExists if root
// already holds a repository.
func Init(ctx context.Context, root string, logger *slog.Logger) (*Repository, error) {
	if _, err := os.Stat(headPath(root)); err == nil {
		return nil, latticeerr.InitExists("%s already holds a repository", root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, latticeerr.IO("creating repository root %s: %w", root, err)
	}

	store, err := objectstore.Open(filepath.Join(root, objectsDirName))
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(filepath.Join(root, catalogName), logger)
	if err != nil {
		return nil, err
	}
	if err := cat.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	if err := writeHeadFile(root, catalog.DefaultBranch); err != nil {
		return nil, err
	}

	return &Repository{root: root, store: store, catalog: cat, logger: withLogger(logger)}, nil
}

// Open opens an existing repository at root. Fails if root does not
// hold a repository (no HEAD file).
func Open(root string, logger *slog.Logger) (*Repository, error) {
	if _, err := os.Stat(headPath(root)); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s is not a lattice repository", root)
		}
		return nil, latticeerr.IO("checking repository root %s: %w", root, err)
	}

	store, err := objectstore.Open(filepath.Join(root, objectsDirName))
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(filepath.Join(root, catalogName), logger)
	if err != nil {
		return nil, err
	}

	return &Repository{root: root, store: store, catalog: cat, logger: withLogger(logger)}, nil
}

// Close releases the repository's catalog connections.
func (r *Repository) Close() error {
	return r.catalog.Close()
}

func writeHeadFile(root, branch string) error {
	if err := os.WriteFile(headPath(root), []byte(branch), 0o644); err != nil {
		return latticeerr.IO("writing HEAD: %w", err)
	}
	return nil
}

func withLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
