// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Lattice is the CLI for a local lattice repository: staging and
// committing large binary artifacts (init, add, commit, log, diff,
// branch, checkout, commit-amend, chunks, status) and synchronizing
// them peer-to-peer (serve, peers, fetch, clone, pull, push).
package main
