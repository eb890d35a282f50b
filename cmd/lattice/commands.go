// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package main

// Root builds the complete lattice CLI command tree (spec.md §6): the
// ten local repository commands plus the six network commands, all as
// flat top-level subcommands (unlike the teacher's per-domain nested
// tree — lattice's command set is small enough that a flat dispatch
// table is the idiomatic shape, not a missing abstraction).
func Root(e *env) *Command {
	root := &Command{
		Name:    "lattice",
		Summary: "Decentralized, content-addressed version control for large binary artifacts",
	}
	root.Subcommands = append(root.Subcommands, repoCommands(e)...)
	root.Subcommands = append(root.Subcommands, peerCommands(e)...)
	return root
}
