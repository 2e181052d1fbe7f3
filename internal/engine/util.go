package engine

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
)

func isAbsPath(p string) bool {
	return filepath.IsAbs(p)
}

// stagingToken returns a short random hex token used to make staging
// filenames unique when two copies of the same destination race (e.g. a
// retried run before the previous staging file was cleaned up).
func stagingToken() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "tmp"
	}
	return hex.EncodeToString(b[:])
}

// stripTrailingDots removes trailing '.' characters from a path's final
// component, per the staging filename pattern
// "<destination-with-trailing-dots-stripped>.<token>.incomplete".
func stripTrailingDots(p string) string {
	return strings.TrimRight(p, ".")
}
