package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// scenario 3 (scaled down): many small files under a bounded
// max_concurrent_files budget all land at the destination with
// identical bytes, and the copied-file counter matches exactly.
func TestCopyDirectoryManySmallFiles(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	mustMkdirAll(t, src)

	const n = 64
	contents := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("file-%03d.bin", i)
		data := writeRandomFile(t, filepath.Join(src, name), 4096)
		contents[name] = data
	}

	opts := DefaultOptions()
	opts.MaxConcurrentFiles = 8
	eng, err := NewCopyEngine(opts, nil)
	if err != nil {
		t.Fatalf("NewCopyEngine: %v", err)
	}

	if err := eng.Copy(context.Background(), src+string(os.PathSeparator), dst); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	stats := eng.Stats()
	if stats.CopiedFileCount != n {
		t.Fatalf("expected %d copied files, got %d", n, stats.CopiedFileCount)
	}

	for name, want := range contents {
		got, err := os.ReadFile(filepath.Join(dst, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("content mismatch for %s", name)
		}
	}

	assertNoIncompleteFiles(t, dst)
}

// scenario 5 (deterministic variant): a copy started with an
// already-cancelled context leaves no destination file behind.
func TestCopyFileCancellationLeavesNoDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeRandomFile(t, src, 1<<20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng, err := NewCopyEngine(DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("NewCopyEngine: %v", err)
	}
	if err := eng.CopyFile(ctx, src, dst); err != nil {
		t.Fatalf("cancellation should not surface as a bag error: %v", err)
	}

	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no destination file after cancellation, stat err=%v", err)
	}
	if stats := eng.Stats(); stats.CopiedFileCount != 0 {
		t.Fatalf("expected 0 copied files after cancellation, got %d", stats.CopiedFileCount)
	}

	assertNoIncompleteFiles(t, dir)
}

// Two distinct failing file copies produce an Aggregate error from the
// engine's ErrorBag, per the error handling design.
func TestErrorBagAggregatesDistinctFileFailures(t *testing.T) {
	opts := DefaultOptions()
	guards := NewBudgetGuards(opts)
	bag := &ErrorBag{}
	var progress progressCounters

	fc := NewFileCopier(opts, guards, bag, &progress, NopObserver{})
	for _, job := range []CopyJob{
		{Src: "/no/such/file/one", Dst: filepath.Join(t.TempDir(), "a")},
		{Src: "/no/such/file/two", Dst: filepath.Join(t.TempDir(), "b")},
	} {
		if err := guards.GQueue.Acquire(context.Background(), 1); err != nil {
			t.Fatalf("GQueue.Acquire: %v", err)
		}
		fc.Copy(context.Background(), job)
	}

	err := bag.Raise()
	ce, ok := err.(*CopyError)
	if !ok || ce.Kind != KindAggregate {
		t.Fatalf("expected Aggregate CopyError, got %v", err)
	}
	if progress.failedFiles != 2 {
		t.Fatalf("expected 2 failed files tracked, got %d", progress.failedFiles)
	}
}

func TestCopyEngineRejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.BufferSize = 0
	if _, err := NewCopyEngine(opts, nil); err == nil {
		t.Fatalf("expected error constructing engine with invalid options")
	}
}

func TestIncrementalSourcePathRewrite(t *testing.T) {
	prefix := "/mnt/remote"
	if got := resolveIncrementalSource("/mnt/remote/a.bin", 0, prefix); got != "/mnt/remote/a.bin" {
		t.Fatalf("worker 0 must use the unmodified path, got %s", got)
	}
	if got := resolveIncrementalSource("/mnt/remote/a.bin", 1, prefix); got != "/mnt/remote_2/a.bin" {
		t.Fatalf("worker 1 expected _2 suffix, got %s", got)
	}
	if got := resolveIncrementalSource("/other/a.bin", 1, prefix); got != "/other/a.bin" {
		t.Fatalf("non-matching prefix must leave path unmodified, got %s", got)
	}
	if got := resolveIncrementalSource("/MNT/REMOTE/a.bin", 2, prefix); got != "/mnt/remote_3/a.bin" {
		t.Fatalf("prefix match must be case-insensitive, got %s", got)
	}
}
