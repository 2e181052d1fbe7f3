package engine

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// chunkWorker is one cooperative task that pulls chunk indices from a
// shared ChunkCursor and performs positioned read/write for one file.
// Its source and staging handles are its own; only the cursor and the
// resize mutex are shared with sibling workers of the same file.
type chunkWorker struct {
	index       int    // 0-based worker index t
	srcPath     string // possibly rewritten by the incremental-source-path rule
	dstPath     string // destination (the caller's original path, for error context)
	stagingPath string
	bufferSize  int
	cursor      *ChunkCursor
	resizeMu    *sync.Mutex
	bytesDone   *int64 // engine-wide byte counter, atomically incremented
}

// run executes the chunk loop until the natural termination signal (an
// effective length <= 0) or an error or cancellation is observed.
func (w *chunkWorker) run(ctx context.Context) error {
	src, err := os.Open(w.srcPath)
	if err != nil {
		return newError(KindIoRead, w.srcPath, w.dstPath, err)
	}
	defer src.Close()

	applyReadAheadHint(src)

	dst, err := os.OpenFile(w.stagingPath, os.O_RDWR, 0o644)
	if err != nil {
		return newError(KindIoWrite, w.srcPath, w.dstPath, err)
	}
	defer dst.Close()

	buf := make([]byte, w.bufferSize)

	for {
		if ctx.Err() != nil {
			return newError(KindCancelled, w.srcPath, w.dstPath, ctx.Err())
		}

		idx := w.cursor.Next()
		start := idx * int64(w.bufferSize)

		info, err := src.Stat()
		if err != nil {
			return newError(KindIoRead, w.srcPath, w.dstPath, err)
		}
		srcLen := info.Size()

		effLen := int64(w.bufferSize)
		if start+effLen > srcLen {
			effLen = srcLen - start
		}
		if effLen <= 0 {
			return nil
		}

		if err := w.ensureStagingLength(dst, start+effLen); err != nil {
			return err
		}

		if ctx.Err() != nil {
			return newError(KindCancelled, w.srcPath, w.dstPath, ctx.Err())
		}

		n, err := src.ReadAt(buf[:effLen], start)
		if n == 0 && err != nil && err != io.EOF {
			return newError(KindIoRead, w.srcPath, w.dstPath, err)
		}
		if n == 0 {
			return nil
		}

		if ctx.Err() != nil {
			return newError(KindCancelled, w.srcPath, w.dstPath, ctx.Err())
		}

		if _, err := dst.WriteAt(buf[:n], start); err != nil {
			return newError(KindIoWrite, w.srcPath, w.dstPath, err)
		}

		atomic.AddInt64(w.bytesDone, int64(n))
	}
}

// ensureStagingLength extends the staging file to length under the
// per-file resize gate, so that concurrent workers never race a
// SetLength/Truncate call against each other.
func (w *chunkWorker) ensureStagingLength(dst *os.File, length int64) error {
	w.resizeMu.Lock()
	defer w.resizeMu.Unlock()

	info, err := dst.Stat()
	if err != nil {
		return newError(KindIoWrite, w.srcPath, w.dstPath, err)
	}
	if info.Size() < length {
		if err := dst.Truncate(length); err != nil {
			return newError(KindIoWrite, w.srcPath, w.dstPath, err)
		}
	}
	return nil
}
