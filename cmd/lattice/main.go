// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lattice-vcs/lattice/internal/latticeerr"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		if kind, ok := latticeerr.KindOf(err); ok {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(latticeerr.ExitCode(kind))
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, args := extractConfigFlag(os.Args[1:])

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	e, err := newEnv(configPath, logger)
	if err != nil {
		return err
	}

	return Root(e).Execute(context.Background(), args)
}

// extractConfigFlag pulls the first "--config <path>"/"--config=<path>",
// wherever it appears, out of args before the command tree sees them, since --config names
// the config file the whole process loads (internal/config), not
// something any individual subcommand's own flags should parse.
func extractConfigFlag(args []string) (path string, rest []string) {
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			rest = append(rest, args[:i]...)
			rest = append(rest, args[i+2:]...)
			return args[i+1], rest
		case len(args[i]) > len("--config=") && args[i][:len("--config=")] == "--config=":
			rest = append(rest, args[:i]...)
			rest = append(rest, args[i+1:]...)
			return args[i][len("--config="):], rest
		}
	}
	return "", args
}
