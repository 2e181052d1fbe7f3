//go:build !linux

package engine

import "os"

// applyReadAheadHint is a no-op on platforms without fadvise.
func applyReadAheadHint(f *os.File) {}
