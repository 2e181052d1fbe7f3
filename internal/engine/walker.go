package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// PathType classifies a filesystem path at classification time, per the
// data model's PathType entity.
type PathType int

const (
	PathUnknown PathType = iota
	PathDirectory
	PathFile
)

// classifyPath determines a path's PathType from its on-disk state and a
// trailing separator, which declares directory intent even when the path
// does not yet exist.
func classifyPath(path string, info os.FileInfo, exists bool) PathType {
	sep := string(os.PathSeparator)
	switch {
	case strings.HasSuffix(path, sep):
		return PathDirectory
	case exists && info.IsDir():
		return PathDirectory
	case exists:
		return PathFile
	default:
		return PathUnknown
	}
}

// CopyJob is a single pending file copy discovered by the Walker: an
// absolute source file path and an absolute destination file path. Its
// source is guaranteed to refer to a regular file at the instant the
// Walker admitted it (not necessarily by the time FileCopier runs).
type CopyJob struct {
	Src string
	Dst string
}

// Walker discovers files and directories under a source path and
// dispatches CopyJobs, backpressured by GQueue.
type Walker struct {
	opts     Options
	guards   *BudgetGuards
	observer Observer
	dispatch func(CopyJob)
}

// NewWalker builds a Walker that calls dispatch for every discovered
// file, after GQueue admission.
func NewWalker(opts Options, guards *BudgetGuards, observer Observer, dispatch func(CopyJob)) *Walker {
	return &Walker{opts: opts, guards: guards, observer: observer, dispatch: dispatch}
}

// Walk classifies src/dst per the classification rules and either
// enqueues a single CopyJob or descends the source tree.
func (w *Walker) Walk(ctx context.Context, src, dst string) error {
	sep := string(os.PathSeparator)

	srcInfo, srcErr := os.Stat(src)
	srcExists := srcErr == nil
	srcType := classifyPath(src, srcInfo, srcExists)

	dstInfo, dstErr := os.Stat(dst)
	dstExists := dstErr == nil
	dstType := classifyPath(dst, dstInfo, dstExists)

	switch {
	case srcType == PathDirectory && !srcExists:
		return newError(KindNotFound, src, dst, fmt.Errorf("source directory does not exist"))

	case srcType == PathDirectory:
		if dstType == PathFile {
			return newError(KindInvalidArgument, src, dst, fmt.Errorf("destination is an existing file, source is a directory"))
		}
		return w.walkDir(ctx, src, dst, "*")

	case srcType == PathFile:
		target := dst
		if dstType == PathDirectory {
			target = filepath.Join(dst, filepath.Base(src))
		}
		return w.enqueue(ctx, CopyJob{Src: src, Dst: target})

	case srcType == PathUnknown && !strings.HasSuffix(src, sep):
		parent := filepath.Dir(src)
		mask := filepath.Base(src)
		if _, err := os.Stat(parent); err != nil {
			return newError(KindNotFound, src, dst, fmt.Errorf("source directory %q does not exist", parent))
		}
		return w.walkDir(ctx, parent, dst, mask)

	default:
		return newError(KindNotFound, src, dst, fmt.Errorf("source path does not exist"))
	}
}

// walkDir recurses one directory level: regular files (filtered by
// maskPat) are enqueued first, then subdirectories are visited. When
// CopyEmptyDirectories is set, dstDir is created eagerly, even before
// any file in it is enqueued; otherwise directory creation is left to
// FileCopier at first-file time.
func (w *Walker) walkDir(ctx context.Context, srcDir, dstDir, maskPat string) error {
	if ctx.Err() != nil {
		return nil
	}

	matcher, err := glob.Compile(maskPat)
	if err != nil {
		matcher = glob.MustCompile("*")
	}

	if w.opts.CopyEmptyDirectories {
		if err := os.MkdirAll(dstDir, 0o755); err != nil {
			return newError(KindIoWrite, srcDir, dstDir, err)
		}
		emit(w.observer, LevelDebug, func() string { return fmt.Sprintf("mkdir %s", dstDir) })
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return newError(KindIoRead, srcDir, dstDir, err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if entry.IsDir() || !matcher.Match(entry.Name()) {
			continue
		}
		job := CopyJob{Src: filepath.Join(srcDir, entry.Name()), Dst: filepath.Join(dstDir, entry.Name())}
		if err := w.enqueue(ctx, job); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if !entry.IsDir() {
			continue
		}
		childSrc := filepath.Join(srcDir, entry.Name())
		childDst := filepath.Join(dstDir, entry.Name())
		if err := w.walkDir(ctx, childSrc, childDst, maskPat); err != nil {
			return err
		}
	}
	return nil
}

// enqueue awaits GQueue admission, bounding pending-job depth to
// max_file_queue_length, then hands the job to dispatch. Cancellation
// while waiting is not treated as a walk error.
func (w *Walker) enqueue(ctx context.Context, job CopyJob) error {
	if err := w.guards.GQueue.Acquire(ctx, 1); err != nil {
		return nil
	}
	emit(w.observer, LevelDebug, func() string { return fmt.Sprintf("discovered %s", job.Src) })
	w.dispatch(job)
	return nil
}
