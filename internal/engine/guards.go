package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BudgetGuards holds the three counting admission gates plus the one
// mutual-exclusion gate described in the concurrency model. They are
// owned by a CopyEngine and shared by reference with every FileCopier
// and ChunkWorker dispatched during one operation.
//
// Acquisition order for a single file, which must be observed everywhere
// to avoid deadlock:
//
//	GFile -> GThreadSafety -> GThread x k -> release GThreadSafety -> copy -> release GThread x k, GFile
type BudgetGuards struct {
	GFile         *semaphore.Weighted
	GQueue        *semaphore.Weighted
	GThread       *semaphore.Weighted
	GThreadSafety sync.Mutex
}

// NewBudgetGuards builds the four gates sized from Options.
func NewBudgetGuards(opts Options) *BudgetGuards {
	return &BudgetGuards{
		GFile:   semaphore.NewWeighted(int64(opts.MaxConcurrentFiles)),
		GQueue:  semaphore.NewWeighted(int64(opts.MaxFileQueueLength)),
		GThread: semaphore.NewWeighted(int64(opts.MaxTotalThreads)),
	}
}

// acquireThreads acquires k GThread permits one at a time while holding
// GThreadSafety, serializing only the acquisition phase across files so
// that two files can never each hold a partial set of GThread permits
// and deadlock waiting on each other. GThreadSafety is released before
// this returns; the k permits remain held by the caller.
func (g *BudgetGuards) acquireThreads(ctx context.Context, k int) error {
	g.GThreadSafety.Lock()
	defer g.GThreadSafety.Unlock()

	acquired := 0
	for acquired < k {
		if err := g.GThread.Acquire(ctx, 1); err != nil {
			// unwind what we already took before surfacing cancellation
			if acquired > 0 {
				g.GThread.Release(int64(acquired))
			}
			return err
		}
		acquired++
	}
	return nil
}

// releaseThreads releases k GThread permits.
func (g *BudgetGuards) releaseThreads(k int) {
	if k > 0 {
		g.GThread.Release(int64(k))
	}
}
