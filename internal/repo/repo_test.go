// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lattice-vcs/lattice/internal/objectstore"
)

func newTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := Init(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, dir
}

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Scenario 1: small-file round-trip.
func TestSmallFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestRepo(t)

	src := writeFile(t, dir, "a.txt", "Hello P2P World!\n")
	digest, err := repo.Add(ctx, src)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	out := filepath.Join(dir, "out.bin")
	if _, ok, err := repo.catalog.GetManifest(ctx, digest); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("a 17-byte file must not produce a manifest")
	}
	if err := objectstore.RetrieveFile(repo.store, digest, out, false); err != nil {
		t.Fatalf("RetrieveFile: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Hello P2P World!\n" {
		t.Fatalf("retrieved content = %q", got)
	}
}

// Scenario 2: multi-chunk file.
func TestMultiChunkFile(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestRepo(t)

	size := 3 * 1024 * 1024
	src := writeFile(t, dir, "big.bin", "")
	if err := os.WriteFile(src, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}

	digest, err := repo.Add(ctx, src)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	manifest, ok, err := repo.catalog.GetManifest(ctx, digest)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("a 3 MiB file must produce a manifest")
	}
	if len(manifest.Chunks) != 3 {
		t.Fatalf("chunk_count = %d, want 3", len(manifest.Chunks))
	}
	if manifest.TotalSize != uint64(size) {
		t.Fatalf("total_size = %d, want %d", manifest.TotalSize, size)
	}
	first := manifest.Chunks[0].Digest
	for _, c := range manifest.Chunks {
		if c.Digest != first {
			t.Fatal("all-zero chunks should dedup to one digest")
		}
	}

	out := filepath.Join(dir, "out.bin")
	if err := objectstore.RetrieveFile(repo.store, digest, out, true); err != nil {
		t.Fatalf("RetrieveFile: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != size || !bytes.Equal(got, make([]byte, size)) {
		t.Fatal("reassembled file does not match expected all-zero content")
	}
}

// Scenario 3: commit and log.
func TestCommitAndLog(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestRepo(t)

	writeFile(t, dir, "a.txt", "x\n")
	if _, err := repo.Add(ctx, filepath.Join(dir, "a.txt")); err != nil {
		t.Fatal(err)
	}
	c1, err := repo.Commit(ctx, "first")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	writeFile(t, dir, "b.txt", "y\n")
	if _, err := repo.Add(ctx, filepath.Join(dir, "b.txt")); err != nil {
		t.Fatal(err)
	}
	c2, err := repo.Commit(ctx, "second")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rec2, err := repo.catalog.GetCommit(ctx, c2)
	if err != nil {
		t.Fatal(err)
	}
	if rec2.Parent == nil || *rec2.Parent != c1 {
		t.Fatal("second commit's parent should be the first commit")
	}

	log, err := repo.Log(ctx)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(log) != 2 || log[0].Digest != c2 || log[1].Digest != c1 {
		t.Fatalf("log order wrong: %+v", log)
	}
}

// Scenario 4: branching.
func TestBranching(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestRepo(t)

	writeFile(t, dir, "a.txt", "x\n")
	repo.Add(ctx, filepath.Join(dir, "a.txt"))
	c1, err := repo.Commit(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "b.txt", "y\n")
	repo.Add(ctx, filepath.Join(dir, "b.txt"))
	c2, err := repo.Commit(ctx, "second")
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.CreateBranch(ctx, "feature"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := repo.Checkout(ctx, "feature"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	writeFile(t, dir, "c.txt", "z\n")
	repo.Add(ctx, filepath.Join(dir, "c.txt"))
	c3, err := repo.Commit(ctx, "f1")
	if err != nil {
		t.Fatal(err)
	}

	featureLog, err := repo.Log(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(featureLog) != 3 || featureLog[0].Digest != c3 || featureLog[1].Digest != c2 || featureLog[2].Digest != c1 {
		t.Fatalf("feature log wrong: %+v", featureLog)
	}

	if err := repo.Checkout(ctx, "main"); err != nil {
		t.Fatalf("Checkout main: %v", err)
	}
	mainLog, err := repo.Log(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mainLog) != 2 || mainLog[0].Digest != c2 || mainLog[1].Digest != c1 {
		t.Fatalf("main log wrong: %+v", mainLog)
	}

	branches, err := repo.ListBranches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var sawMain, sawFeature bool
	for _, b := range branches {
		switch b.Name {
		case "main":
			sawMain = true
			if !b.Current {
				t.Fatal("main should be current after checkout")
			}
		case "feature":
			sawFeature = true
			if b.Current {
				t.Fatal("feature should not be current after checking out main")
			}
		}
	}
	if !sawMain || !sawFeature {
		t.Fatal("branch --list should show both branches")
	}
}

func TestCommitFailsWhenNothingStaged(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if _, err := repo.Commit(ctx, "empty"); err == nil {
		t.Fatal("expected EmptyCommit error")
	}
}

func TestAmendPreservesParent(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestRepo(t)

	writeFile(t, dir, "a.txt", "x\n")
	repo.Add(ctx, filepath.Join(dir, "a.txt"))
	c1, err := repo.Commit(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "b.txt", "y\n")
	repo.Add(ctx, filepath.Join(dir, "b.txt"))
	if _, err := repo.Commit(ctx, "second"); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "c.txt", "z\n")
	repo.Add(ctx, filepath.Join(dir, "c.txt"))
	amended, err := repo.Amend(ctx, nil)
	if err != nil {
		t.Fatalf("Amend: %v", err)
	}

	rec, err := repo.catalog.GetCommit(ctx, amended)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Parent == nil || *rec.Parent != c1 {
		t.Fatal("amend should preserve the amended commit's parent")
	}
	if len(rec.Files) != 2 {
		t.Fatalf("amended commit should have 2 files (b.txt from the amended commit plus staged c.txt), got %d", len(rec.Files))
	}
}

func TestDiffAddedRemovedModified(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestRepo(t)

	writeFile(t, dir, "a.txt", "x\n")
	writeFile(t, dir, "b.txt", "y\n")
	repo.Add(ctx, filepath.Join(dir, "a.txt"))
	repo.Add(ctx, filepath.Join(dir, "b.txt"))
	c1, err := repo.Commit(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "a.txt", "x2\n")
	writeFile(t, dir, "c.txt", "z\n")
	repo.Add(ctx, filepath.Join(dir, "a.txt"))
	repo.Add(ctx, filepath.Join(dir, "c.txt"))
	// b.txt is not re-staged, so it survives unchanged via amend-less
	// commit only if re-added; commit() snapshots only staged paths, so
	// stage b.txt again to keep it present in the second commit too.
	repo.Add(ctx, filepath.Join(dir, "b.txt"))
	c2, err := repo.Commit(ctx, "second")
	if err != nil {
		t.Fatal(err)
	}

	diff, err := repo.Diff(ctx, objectstore.FormatHash(c1), objectstore.FormatHash(c2))
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(diff.Added) != 1 || diff.Added[0] != "c.txt" {
		t.Fatalf("added = %v, want [c.txt]", diff.Added)
	}
	if len(diff.Modified) != 1 || diff.Modified[0] != "a.txt" {
		t.Fatalf("modified = %v, want [a.txt]", diff.Modified)
	}
	if len(diff.Removed) != 0 {
		t.Fatalf("removed = %v, want []", diff.Removed)
	}
}

func TestResolveByPrefix(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestRepo(t)

	writeFile(t, dir, "a.txt", "x\n")
	repo.Add(ctx, filepath.Join(dir, "a.txt"))
	c1, err := repo.Commit(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}

	full := objectstore.FormatHash(c1)
	resolved, err := repo.Resolve(ctx, full[:8])
	if err != nil {
		t.Fatalf("Resolve prefix: %v", err)
	}
	if resolved != c1 {
		t.Fatal("resolved prefix does not match the commit digest")
	}
}

func TestInitFailsIfAlreadyARepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()

	if _, err := Init(context.Background(), dir, nil); err == nil {
		t.Fatal("expected InitExists error on second Init")
	}
}
