package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// progressCounters are the engine-scoped atomic counters shared by every
// FileCopier/ChunkWorker dispatched during one operation.
type progressCounters struct {
	copiedFiles  int64
	copiedBytes  int64
	failedFiles  int64
	skippedFiles int64
}

// Stats is a point-in-time snapshot of one operation's progress,
// suitable for polling from a CLI or TUI host.
type Stats struct {
	CopiedFileCount  uint64
	CopiedByteCount  uint64
	FailedFileCount  uint64
	SkippedFileCount uint64
	Elapsed          time.Duration
}

// CopyEngine is the top-level coordinator: it serializes copy operations
// one at a time per instance, owns the BudgetGuards, aggregates errors,
// and emits statistics.
type CopyEngine struct {
	opts     Options
	guards   *BudgetGuards
	bag      *ErrorBag
	observer Observer

	opGate    sync.Mutex
	progress  progressCounters
	startTime time.Time
}

// NewCopyEngine validates opts and builds a CopyEngine. observer may be
// nil, in which case events are discarded.
func NewCopyEngine(opts Options, observer Observer) (*CopyEngine, error) {
	validated := opts
	if err := validated.Validate(); err != nil {
		return nil, err
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &CopyEngine{
		opts:     validated,
		guards:   NewBudgetGuards(validated),
		bag:      &ErrorBag{},
		observer: observer,
	}, nil
}

// Copy copies a file or directory tree from src to dst. It returns after
// every dispatched file copy completes or cancellation is observed.
func (e *CopyEngine) Copy(ctx context.Context, src, dst string) error {
	e.opGate.Lock()
	defer e.opGate.Unlock()
	e.resetForOperation()

	var wg sync.WaitGroup
	dispatch := func(job CopyJob) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fc := NewFileCopier(e.opts, e.guards, e.bag, &e.progress, e.observer)
			fc.Copy(ctx, job)
		}()
	}

	walker := NewWalker(e.opts, e.guards, e.observer, dispatch)
	if err := walker.Walk(ctx, src, dst); err != nil {
		e.bag.Add(err)
	}
	wg.Wait()

	e.emitFinalStats()
	return e.bag.Raise()
}

// CopyFile copies a single file without walking. src must not be a
// directory.
func (e *CopyEngine) CopyFile(ctx context.Context, src, dst string) error {
	e.opGate.Lock()
	defer e.opGate.Unlock()
	e.resetForOperation()

	info, err := os.Stat(src)
	if err != nil {
		e.bag.Add(newError(KindNotFound, src, dst, err))
		e.emitFinalStats()
		return e.bag.Raise()
	}
	if info.IsDir() {
		e.bag.Add(newError(KindInvalidArgument, src, dst, fmt.Errorf("source is a directory")))
		e.emitFinalStats()
		return e.bag.Raise()
	}

	target := dst
	if dstInfo, derr := os.Stat(dst); derr == nil && dstInfo.IsDir() {
		target = filepath.Join(dst, filepath.Base(src))
	} else if strings.HasSuffix(dst, string(os.PathSeparator)) {
		target = filepath.Join(dst, filepath.Base(src))
	}

	if err := e.guards.GQueue.Acquire(ctx, 1); err != nil {
		e.emitFinalStats()
		return e.bag.Raise()
	}

	fc := NewFileCopier(e.opts, e.guards, e.bag, &e.progress, e.observer)
	fc.Copy(ctx, CopyJob{Src: src, Dst: target})

	e.emitFinalStats()
	return e.bag.Raise()
}

// Stats returns a snapshot of the current operation's progress.
func (e *CopyEngine) Stats() Stats {
	return Stats{
		CopiedFileCount:  uint64(atomic.LoadInt64(&e.progress.copiedFiles)),
		CopiedByteCount:  uint64(atomic.LoadInt64(&e.progress.copiedBytes)),
		FailedFileCount:  uint64(atomic.LoadInt64(&e.progress.failedFiles)),
		SkippedFileCount: uint64(atomic.LoadInt64(&e.progress.skippedFiles)),
		Elapsed:          time.Since(e.startTime),
	}
}

func (e *CopyEngine) resetForOperation() {
	e.bag.Reset()
	atomic.StoreInt64(&e.progress.copiedFiles, 0)
	atomic.StoreInt64(&e.progress.copiedBytes, 0)
	atomic.StoreInt64(&e.progress.failedFiles, 0)
	atomic.StoreInt64(&e.progress.skippedFiles, 0)
	e.startTime = time.Now()
}

func (e *CopyEngine) emitFinalStats() {
	s := e.Stats()
	emit(e.observer, LevelInfo, func() string {
		return fmt.Sprintf("done: %d files copied, %d bytes, %d failed, %d skipped, elapsed %s",
			s.CopiedFileCount, s.CopiedByteCount, s.FailedFileCount, s.SkippedFileCount, s.Elapsed)
	})
}
