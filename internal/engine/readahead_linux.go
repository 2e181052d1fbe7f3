//go:build linux

package engine

import (
	"os"

	"golang.org/x/sys/unix"
)

// applyReadAheadHint tells the kernel the chunk worker will read this
// file sequentially, widening the readahead window. Best-effort: a
// failure here never aborts the copy.
func applyReadAheadHint(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
