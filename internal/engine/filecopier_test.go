package engine

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeRandomFile(t *testing.T, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return data
}

// scenario 1 from the testable-properties list: a 1KB file under
// defaults elects a single worker and produces a byte-identical copy.
func TestCopyFileSmallSingleWorker(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := writeRandomFile(t, src, 1024)

	opts := DefaultOptions()
	fc := &FileCopier{opts: opts}
	if k := fc.electWorkerCount(int64(len(data))); k != 1 {
		t.Fatalf("expected elected worker count 1, got %d", k)
	}

	eng, err := NewCopyEngine(opts, nil)
	if err != nil {
		t.Fatalf("NewCopyEngine: %v", err)
	}

	if err := eng.CopyFile(context.Background(), src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile dst: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("destination bytes do not match source")
	}

	stats := eng.Stats()
	if stats.CopiedFileCount != 1 {
		t.Fatalf("expected CopiedFileCount 1, got %d", stats.CopiedFileCount)
	}
	if stats.CopiedByteCount != uint64(len(data)) {
		t.Fatalf("expected CopiedByteCount %d, got %d", len(data), stats.CopiedByteCount)
	}

	assertNoIncompleteFiles(t, dir)
}

// scenario 2 (scaled down): a file large enough relative to buffer_size
// and min_chunks_per_thread to elect the maximum worker count produces a
// byte-identical copy of the exact expected length.
func TestCopyFileMultiWorker(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	const size = 100_000
	data := writeRandomFile(t, src, size)

	opts := DefaultOptions()
	opts.BufferSize = 1024
	opts.MinChunksPerThread = 2
	opts.MaxThreadsPerFile = 4
	opts.MaxTotalThreads = 4

	fc := &FileCopier{opts: opts}
	if k := fc.electWorkerCount(size); k != 4 {
		t.Fatalf("expected elected worker count 4, got %d", k)
	}

	eng, err := NewCopyEngine(opts, nil)
	if err != nil {
		t.Fatalf("NewCopyEngine: %v", err)
	}
	if err := eng.CopyFile(context.Background(), src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile dst: %v", err)
	}
	if len(got) != size {
		t.Fatalf("expected destination length %d, got %d", size, len(got))
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("destination bytes do not match source")
	}

	assertNoIncompleteFiles(t, dir)
}

func TestCopyFileSkipsIdenticalDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := writeRandomFile(t, src, 512)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatalf("seed dst: %v", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat src: %v", err)
	}
	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	opts := DefaultOptions()
	opts.SkipExistingIdentical = true
	eng, err := NewCopyEngine(opts, nil)
	if err != nil {
		t.Fatalf("NewCopyEngine: %v", err)
	}
	if err := eng.CopyFile(context.Background(), src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	stats := eng.Stats()
	if stats.CopiedFileCount != 0 {
		t.Fatalf("expected no file counted as copied on skip, got %d", stats.CopiedFileCount)
	}
	if stats.SkippedFileCount != 1 {
		t.Fatalf("expected SkippedFileCount 1, got %d", stats.SkippedFileCount)
	}
}

func TestCopyFileMirrorsModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeRandomFile(t, src, 2048)

	past := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	if err := os.Chtimes(src, past, past); err != nil {
		t.Fatalf("chtimes src: %v", err)
	}

	opts := DefaultOptions()
	eng, err := NewCopyEngine(opts, nil)
	if err != nil {
		t.Fatalf("NewCopyEngine: %v", err)
	}
	if err := eng.CopyFile(context.Background(), src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat src: %v", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat dst: %v", err)
	}
	if !srcInfo.ModTime().UTC().Equal(dstInfo.ModTime().UTC()) {
		t.Fatalf("expected mod times to match: src=%v dst=%v", srcInfo.ModTime(), dstInfo.ModTime())
	}
	if srcInfo.Size() != dstInfo.Size() {
		t.Fatalf("expected sizes to match: src=%d dst=%d", srcInfo.Size(), dstInfo.Size())
	}
}

func TestCopyFileRejectsDirectorySource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	dst := filepath.Join(dir, "out.bin")

	eng, err := NewCopyEngine(DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("NewCopyEngine: %v", err)
	}
	err = eng.CopyFile(context.Background(), src, dst)
	if err == nil {
		t.Fatalf("expected error copying a directory via CopyFile")
	}
	ce, ok := err.(*CopyError)
	if !ok || ce.Kind != KindInvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func assertNoIncompleteFiles(t *testing.T, root string) {
	t.Helper()
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".incomplete" {
			t.Fatalf("stray staging file left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}
