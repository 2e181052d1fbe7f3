package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// FileCopier orchestrates a single file copy: admission, staging,
// spawning ChunkWorkers, metadata preservation, and finalization.
type FileCopier struct {
	opts     Options
	guards   *BudgetGuards
	bag      *ErrorBag
	progress *progressCounters
	observer Observer
}

// NewFileCopier builds a FileCopier sharing guards, bag, and progress
// counters with the owning CopyEngine for the duration of one operation.
func NewFileCopier(opts Options, guards *BudgetGuards, bag *ErrorBag, progress *progressCounters, observer Observer) *FileCopier {
	return &FileCopier{opts: opts, guards: guards, bag: bag, progress: progress, observer: observer}
}

// Copy executes the full per-file protocol for job. It always releases
// job's GQueue permit on return, regardless of outcome.
func (fc *FileCopier) Copy(ctx context.Context, job CopyJob) {
	defer fc.guards.GQueue.Release(1)

	if ctx.Err() != nil {
		return
	}

	if err := fc.guards.GFile.Acquire(ctx, 1); err != nil {
		return
	}
	defer fc.guards.GFile.Release(1)

	srcInfo, err := os.Stat(job.Src)
	if err != nil {
		fc.fail(newError(KindIoRead, job.Src, job.Dst, err))
		return
	}

	if fc.opts.SkipExistingIdentical {
		if dstInfo, derr := os.Stat(job.Dst); derr == nil {
			if dstInfo.Size() == srcInfo.Size() && dstInfo.ModTime().UTC().Equal(srcInfo.ModTime().UTC()) {
				atomic.AddInt64(&fc.progress.skippedFiles, 1)
				emit(fc.observer, LevelVerbose, func() string {
					return fmt.Sprintf("skip (identical): %s", job.Dst)
				})
				return
			}
		}
	}

	k := fc.electWorkerCount(srcInfo.Size())

	if err := fc.guards.acquireThreads(ctx, k); err != nil {
		return
	}
	defer fc.guards.releaseThreads(k)

	if err := os.MkdirAll(filepath.Dir(job.Dst), 0o755); err != nil {
		fc.fail(newError(KindIoWrite, job.Src, job.Dst, err))
		return
	}

	if _, err := os.Stat(job.Dst); err == nil {
		if err := os.Remove(job.Dst); err != nil {
			fc.fail(newError(KindIoDelete, job.Src, job.Dst, err))
			return
		}
	}

	stagingPath := job.Dst
	if fc.opts.UseIncompleteFilename {
		stagingPath = stripTrailingDots(job.Dst) + "." + stagingToken() + ".incomplete"
	}

	stagingFile, err := os.OpenFile(stagingPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		fc.fail(newError(KindIoWrite, job.Src, job.Dst, err))
		return
	}
	stagingFile.Close()

	cursor := newChunkCursor()
	var resizeMu sync.Mutex

	errs := make([]error, k)
	var wg sync.WaitGroup
	for t := 0; t < k; t++ {
		wg.Add(1)
		workerSrc := resolveIncrementalSource(job.Src, t, fc.opts.IncrementalSourcePath)
		go func(t int, src string) {
			defer wg.Done()
			w := &chunkWorker{
				index:       t,
				srcPath:     src,
				dstPath:     job.Dst,
				stagingPath: stagingPath,
				bufferSize:  fc.opts.BufferSize,
				cursor:      cursor,
				resizeMu:    &resizeMu,
				bytesDone:   &fc.progress.copiedBytes,
			}
			errs[t] = w.run(ctx)
		}(t, workerSrc)
	}
	wg.Wait()

	cancelled := ctx.Err() != nil
	var failed []error
	for _, e := range errs {
		if e == nil {
			continue
		}
		if ErrIsCancelled(e) {
			cancelled = true
			continue
		}
		failed = append(failed, e)
	}

	if cancelled {
		_ = os.Remove(stagingPath)
		return
	}
	if len(failed) > 0 {
		for _, e := range failed {
			fc.fail(e)
		}
		_ = os.Remove(stagingPath)
		return
	}

	if stagingPath != job.Dst {
		if _, err := os.Stat(job.Dst); err == nil {
			_ = os.Remove(job.Dst)
		}
		if err := os.Rename(stagingPath, job.Dst); err != nil {
			fc.fail(newError(KindIoRename, job.Src, job.Dst, err))
			_ = os.Remove(stagingPath)
			return
		}
	}

	if timeErr, attrErr := copyMetadata(job.Src, job.Dst, srcInfo); timeErr != nil || attrErr != nil {
		if timeErr != nil {
			fc.bag.Add(timeErr)
		}
		if attrErr != nil {
			fc.bag.Add(attrErr)
		}
	}

	atomic.AddInt64(&fc.progress.copiedFiles, 1)
	emit(fc.observer, LevelInfo, func() string {
		return fmt.Sprintf("copied %s -> %s (%d bytes)", job.Src, job.Dst, srcInfo.Size())
	})
}

// fail records err in the shared ErrorBag and bumps the failed-file
// counter used for stats/progress reporting.
func (fc *FileCopier) fail(err error) {
	fc.bag.Add(err)
	atomic.AddInt64(&fc.progress.failedFiles, 1)
}

// electWorkerCount computes k per the worker-election rule: tiny files
// (below min_chunks_per_thread worth of bytes) get a single worker.
func (fc *FileCopier) electWorkerCount(size int64) int {
	minBytesPerWorker := int64(fc.opts.BufferSize) * int64(fc.opts.MinChunksPerThread)
	if minBytesPerWorker <= 0 {
		minBytesPerWorker = 1
	}
	kMax := int(size / minBytesPerWorker)
	if kMax < 1 {
		kMax = 1
	}
	k := fc.opts.MaxThreadsPerFile
	if k > kMax {
		k = kMax
	}
	if k < 1 {
		k = 1
	}
	return k
}

// resolveIncrementalSource implements the incremental-source-path
// rewrite rule: worker 0 always sees the unmodified path; workers t>=1
// see "<prefix>_<t+1><suffix>" when src case-insensitively starts with
// prefix.
func resolveIncrementalSource(src string, t int, prefix string) string {
	if t == 0 || prefix == "" {
		return src
	}
	if len(src) < len(prefix) || !strings.EqualFold(src[:len(prefix)], prefix) {
		return src
	}
	suffix := src[len(prefix):]
	return fmt.Sprintf("%s_%d%s", prefix, t+1, suffix)
}
