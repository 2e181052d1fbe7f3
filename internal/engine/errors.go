package engine

import (
	"errors"
	"fmt"
	"sync"
)

// Kind tags a CopyError with its taxonomic category, per the error
// handling design. Callers switch on Kind rather than on Go's dynamic
// error type.
type Kind int

const (
	KindInvalidArgument Kind = iota
	KindNotFound
	KindIoRead
	KindIoWrite
	KindIoRename
	KindIoDelete
	KindIoMetadata
	KindCancelled
	KindAggregate
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindIoRead:
		return "IoRead"
	case KindIoWrite:
		return "IoWrite"
	case KindIoRename:
		return "IoRename"
	case KindIoDelete:
		return "IoDelete"
	case KindIoMetadata:
		return "IoMetadata"
	case KindCancelled:
		return "Cancelled"
	case KindAggregate:
		return "Aggregate"
	default:
		return "Unknown"
	}
}

// CopyError wraps an underlying error with its taxonomic Kind and the
// source/destination context of the file copy it occurred in.
type CopyError struct {
	Kind Kind
	Src  string
	Dst  string
	Err  error
}

func newError(kind Kind, src, dst string, err error) *CopyError {
	return &CopyError{Kind: kind, Src: src, Dst: dst, Err: err}
}

func (e *CopyError) Error() string {
	if e.Src == "" && e.Dst == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Dst == "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Src, e.Err)
	}
	return fmt.Sprintf("%s: %s -> %s: %v", e.Kind, e.Src, e.Dst, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// ErrIsCancelled reports whether err is (or wraps) a Cancelled CopyError.
func ErrIsCancelled(err error) bool {
	var ce *CopyError
	if errors.As(err, &ce) {
		return ce.Kind == KindCancelled
	}
	return false
}

// ErrorBag is a concurrency-safe, unordered collection of failures from
// distinct file copies, scoped to a single CopyEngine operation.
type ErrorBag struct {
	mu   sync.Mutex
	errs []error
}

// Add inserts err into the bag. Safe for concurrent use.
func (b *ErrorBag) Add(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

// Len reports the number of errors currently in the bag. Safe for
// concurrent use, but callers must only rely on the result after all
// dispatched tasks have joined.
func (b *ErrorBag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.errs)
}

// Reset empties the bag for a new operation.
func (b *ErrorBag) Reset() {
	b.mu.Lock()
	b.errs = nil
	b.mu.Unlock()
}

// Raise returns nil if the bag is empty, the single contained error if
// it holds exactly one, or an Aggregate CopyError wrapping all of them
// otherwise.
func (b *ErrorBag) Raise() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch len(b.errs) {
	case 0:
		return nil
	case 1:
		return b.errs[0]
	default:
		return newError(KindAggregate, "", "", errors.Join(b.errs...))
	}
}
