// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/lattice-vcs/lattice/internal/objectstore"
	"github.com/lattice-vcs/lattice/internal/orchestrator"
	"github.com/lattice-vcs/lattice/internal/peer"
	"github.com/lattice-vcs/lattice/internal/repo"
)

// peerCommands returns spec.md §6's network commands: serve, peers,
// fetch, clone, pull, push. Each opens (or, for clone, creates) a
// repository, loads this process's persistent identity, and drives an
// orchestrator.Orchestrator against a peer table seeded by a short
// discovery window (see context.go's seedPeerTable).
func peerCommands(e *env) []*Command {
	return []*Command{
		serveCommand(e),
		peersCommand(e),
		fetchCommand(e),
		cloneCommand(e),
		pullCommand(e),
		pushCommand(e),
	}
}

func serveCommand(e *env) *Command {
	return &Command{
		Name:    "serve",
		Summary: "Print PeerId and listen address; run until signal",
		Run: func(ctx context.Context, args []string) error {
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			id, err := e.identity(r.Root())
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", ":0")
			if err != nil {
				return fmt.Errorf("listening: %w", err)
			}
			defer ln.Close()
			listenAddr := peer.AnnounceAddress(ln.Addr())

			fmt.Printf("peer id: %s\nlisten:  %s\n", id.PeerID, listenAddr)

			table := peer.NewTable()
			discoverer := peer.NewDiscoverer(id, listenAddr, table, e.logger, e.cfg.DiscoveryPort)

			sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := discoverer.Run(sigCtx); err != nil {
					e.logger.Error("discovery stopped", "error", err)
				}
			}()

			orch := orchestrator.New(r, id, table, e.logger)
			orch.SetConcurrency(e.cfg.FetchConcurrency)
			return orch.Serve(sigCtx, ln)
		},
	}
}

func peersCommand(e *env) *Command {
	return &Command{
		Name:    "peers",
		Summary: "Print discovered peers",
		Run: func(ctx context.Context, args []string) error {
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			id, err := e.identity(r.Root())
			if err != nil {
				return err
			}

			table := peer.NewTable()
			e.seedPeerTable(ctx, id, "", table, discoveryWindow)

			entries := table.List()
			if len(entries) == 0 {
				fmt.Println("no peers discovered")
				return nil
			}
			for _, entry := range entries {
				fmt.Printf("%s  %v\n", entry.PeerID, entry.Addresses)
			}
			return nil
		},
	}
}

// targetOrchestrator opens the local repository, loads identity, and
// seeds a peer table from a short discovery window — shared setup for
// fetch/pull/push. Callers must close the returned repository.
func targetOrchestrator(ctx context.Context, e *env) (*orchestrator.Orchestrator, *repo.Repository, error) {
	r, err := e.openRepo()
	if err != nil {
		return nil, nil, err
	}
	id, err := e.identity(r.Root())
	if err != nil {
		r.Close()
		return nil, nil, err
	}

	table := peer.NewTable()
	e.seedPeerTable(ctx, id, "", table, discoveryWindow)

	orch := orchestrator.New(r, id, table, e.logger)
	orch.SetConcurrency(e.cfg.FetchConcurrency)
	return orch, r, nil
}

func fetchCommand(e *env) *Command {
	return &Command{
		Name:    "fetch",
		Summary: "Fetch an object from a peer",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: lattice fetch <peer> <digest>")
			}
			target, digestStr := args[0], args[1]
			digest, err := objectstore.ParseHash(digestStr)
			if err != nil {
				return err
			}

			orch, r, err := targetOrchestrator(ctx, e)
			if err != nil {
				return err
			}
			defer r.Close()

			outPath := fmt.Sprintf("fetched_%s.dat", digestStr[:8])
			if err := orch.Fetch(ctx, target, digest, outPath); err != nil {
				return err
			}
			fmt.Println(outPath)
			return nil
		},
	}
}

func cloneCommand(e *env) *Command {
	return &Command{
		Name:    "clone",
		Summary: "Clone a remote repository into a new directory",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: lattice clone <peer> <dir>")
			}
			target, dir := args[0], args[1]

			// Clone creates its own repository at dir, so it needs only
			// an identity, not one opened against the current directory.
			id, err := e.identity(".")
			if err != nil {
				return err
			}
			table := peer.NewTable()
			e.seedPeerTable(ctx, id, "", table, discoveryWindow)

			orch := orchestrator.New(nil, id, table, e.logger)
			orch.SetConcurrency(e.cfg.FetchConcurrency)
			return orch.Clone(ctx, target, dir)
		},
	}
}

func pullCommand(e *env) *Command {
	return &Command{
		Name:    "pull",
		Summary: "Pull new commits from a peer",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: lattice pull <peer>")
			}
			orch, r, err := targetOrchestrator(ctx, e)
			if err != nil {
				return err
			}
			defer r.Close()
			return orch.Pull(ctx, args[0])
		},
	}
}

func pushCommand(e *env) *Command {
	return &Command{
		Name:    "push",
		Summary: "Push local commits to a peer",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: lattice push <peer>")
			}
			orch, r, err := targetOrchestrator(ctx, e)
			if err != nil {
				return err
			}
			defer r.Close()
			return orch.Push(ctx, args[0])
		},
	}
}
