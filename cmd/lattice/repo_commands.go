// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/lattice-vcs/lattice/internal/objectstore"
	"github.com/lattice-vcs/lattice/internal/repo"
)

// repoCommands returns every command in spec.md §6's table that
// operates on the local repository in the current working directory
// (everything but serve/peers/fetch/clone/pull/push, which also touch
// the network — see peer_commands.go).
func repoCommands(e *env) []*Command {
	return []*Command{
		initCommand(e),
		addCommand(e),
		statusCommand(e),
		commitCommand(e),
		logCommand(e),
		diffCommand(e),
		branchCommand(e),
		checkoutCommand(e),
		amendCommand(e),
		chunksCommand(e),
	}
}

func initCommand(e *env) *Command {
	return &Command{
		Name:    "init",
		Summary: "Create a repository in the current directory",
		Run: func(ctx context.Context, args []string) error {
			r, err := repo.Init(ctx, ".", e.logger)
			if err != nil {
				return err
			}
			return r.Close()
		},
	}
}

func addCommand(e *env) *Command {
	return &Command{
		Name:    "add",
		Summary: "Stage a file",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: lattice add <path>")
			}
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			digest, err := r.Add(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(objectstore.FormatHash(digest))
			return nil
		},
	}
}

func statusCommand(e *env) *Command {
	return &Command{
		Name:    "status",
		Summary: "Print branch, head, and staged entries",
		Run: func(ctx context.Context, args []string) error {
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			st, err := r.Status(ctx)
			if err != nil {
				return err
			}
			head := "none"
			if st.Head != nil {
				head = objectstore.FormatHash(*st.Head)
			}
			fmt.Printf("branch: %s\nhead:   %s\n", st.Branch, head)
			if len(st.Staged) == 0 {
				fmt.Println("no staged files")
				return nil
			}
			fmt.Println("staged:")
			for _, f := range st.Staged {
				printStagedFile(os.Stdout, f)
			}
			return nil
		},
	}
}

func commitCommand(e *env) *Command {
	var message string
	return &Command{
		Name:    "commit",
		Summary: "Create a commit from staged files",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("commit", pflag.ContinueOnError)
			fs.StringVarP(&message, "message", "m", "", "commit message (required)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if message == "" {
				return fmt.Errorf("usage: lattice commit -m <message>")
			}
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			digest, err := r.Commit(ctx, message)
			if err != nil {
				return err
			}
			fmt.Println(objectstore.FormatHash(digest))
			return nil
		},
	}
}

func logCommand(e *env) *Command {
	return &Command{
		Name:    "log",
		Summary: "Print reverse-chronological commits",
		Run: func(ctx context.Context, args []string) error {
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			commits, err := r.Log(ctx)
			if err != nil {
				return err
			}
			for _, c := range commits {
				printCommit(os.Stdout, c)
			}
			return nil
		},
	}
}

func diffCommand(e *env) *Command {
	return &Command{
		Name:    "diff",
		Summary: "Print added/removed/modified paths between two commits",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: lattice diff <ref1> <ref2>")
			}
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := r.Diff(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			for _, p := range result.Added {
				fmt.Printf("+ %s\n", p)
			}
			for _, p := range result.Removed {
				fmt.Printf("- %s\n", p)
			}
			for _, p := range result.Modified {
				fmt.Printf("~ %s\n", p)
			}
			return nil
		},
	}
}

func branchCommand(e *env) *Command {
	var list, del bool
	return &Command{
		Name:    "branch",
		Summary: "List, create, or delete branches",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("branch", pflag.ContinueOnError)
			fs.BoolVar(&list, "list", false, "list all branches")
			fs.BoolVar(&del, "delete", false, "delete the named branch")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			if list {
				branches, err := r.ListBranches(ctx)
				if err != nil {
					return err
				}
				for _, b := range branches {
					marker := " "
					if b.Current {
						marker = "*"
					}
					fmt.Printf("%s %s\n", marker, b.Name)
				}
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("usage: lattice branch [--list|--delete] <name>")
			}
			if del {
				return r.DeleteBranch(ctx, args[0])
			}
			return r.CreateBranch(ctx, args[0])
		},
	}
}

func checkoutCommand(e *env) *Command {
	return &Command{
		Name:    "checkout",
		Summary: "Move HEAD to a branch",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: lattice checkout <name>")
			}
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()
			return r.Checkout(ctx, args[0])
		},
	}
}

func amendCommand(e *env) *Command {
	var message string
	return &Command{
		Name:    "commit-amend",
		Summary: "Amend the current commit",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("commit-amend", pflag.ContinueOnError)
			fs.StringVarP(&message, "message", "m", "", "new commit message (defaults to the original)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			var msgArg *string
			if message != "" {
				msgArg = &message
			}
			digest, err := r.Amend(ctx, msgArg)
			if err != nil {
				return err
			}
			fmt.Println(objectstore.FormatHash(digest))
			return nil
		},
	}
}

func chunksCommand(e *env) *Command {
	return &Command{
		Name:    "chunks",
		Summary: "List a digest's chunks",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: lattice chunks <digest>")
			}
			r, err := e.openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			entries, err := r.Chunks(ctx, args[0])
			if err != nil {
				return err
			}
			for _, entry := range entries {
				printChunk(os.Stdout, entry)
			}
			return nil
		},
	}
}
