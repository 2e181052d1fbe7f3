package engine

import "fmt"

// Default option values, per the configuration table in the external
// interface contract.
const (
	DefaultMaxConcurrentFiles  = 4
	DefaultMaxThreadsPerFile   = 4
	DefaultMaxTotalThreads     = 4
	DefaultBufferSize          = 131072
	DefaultMaxFileQueueLength  = 50
	DefaultUseIncompleteFile   = true
	DefaultCopyEmptyDirs       = false
	DefaultMinChunksPerThread  = 32
	DefaultSkipExistingIdentical = false
)

// Options is the immutable configuration record consumed by every other
// component. A zero-value Options is not usable; call DefaultOptions and
// tweak the returned copy before Validate.
type Options struct {
	MaxConcurrentFiles  int
	MaxThreadsPerFile   int
	MaxTotalThreads     int
	BufferSize          int
	MaxFileQueueLength  int
	UseIncompleteFilename bool
	CopyEmptyDirectories  bool
	// IncrementalSourcePath, when non-empty, must be an absolute path
	// prefix. Workers beyond the first rewrite a matching source path
	// to "<prefix>_<N><suffix>" (see resolveIncrementalSource).
	IncrementalSourcePath string
	MinChunksPerThread    int
	SkipExistingIdentical bool
}

// DefaultOptions returns an Options populated with the defaults from the
// external interface table. The result is always Valid.
func DefaultOptions() Options {
	return Options{
		MaxConcurrentFiles:    DefaultMaxConcurrentFiles,
		MaxThreadsPerFile:     DefaultMaxThreadsPerFile,
		MaxTotalThreads:       DefaultMaxTotalThreads,
		BufferSize:            DefaultBufferSize,
		MaxFileQueueLength:    DefaultMaxFileQueueLength,
		UseIncompleteFilename: DefaultUseIncompleteFile,
		CopyEmptyDirectories:  DefaultCopyEmptyDirs,
		MinChunksPerThread:    DefaultMinChunksPerThread,
		SkipExistingIdentical: DefaultSkipExistingIdentical,
	}
}

// Validate checks the invariants from the data model table and clamps
// MaxThreadsPerFile to MaxTotalThreads. It returns an InvalidArgument
// error describing the first violation found.
func (o *Options) Validate() error {
	if o.MaxConcurrentFiles < 1 {
		return newError(KindInvalidArgument, "", "", fmt.Errorf("max_concurrent_files must be >= 1, got %d", o.MaxConcurrentFiles))
	}
	if o.MaxThreadsPerFile < 1 {
		return newError(KindInvalidArgument, "", "", fmt.Errorf("max_threads_per_file must be >= 1, got %d", o.MaxThreadsPerFile))
	}
	if o.MaxTotalThreads < 1 {
		return newError(KindInvalidArgument, "", "", fmt.Errorf("max_total_threads must be >= 1, got %d", o.MaxTotalThreads))
	}
	if o.BufferSize <= 0 {
		return newError(KindInvalidArgument, "", "", fmt.Errorf("buffer_size must be > 0, got %d", o.BufferSize))
	}
	if o.MaxFileQueueLength < 1 {
		return newError(KindInvalidArgument, "", "", fmt.Errorf("max_file_queue_length must be >= 1, got %d", o.MaxFileQueueLength))
	}
	if o.MinChunksPerThread < 1 {
		return newError(KindInvalidArgument, "", "", fmt.Errorf("min_chunks_per_thread must be >= 1, got %d", o.MinChunksPerThread))
	}
	if o.IncrementalSourcePath != "" && !isAbsPath(o.IncrementalSourcePath) {
		return newError(KindInvalidArgument, "", "", fmt.Errorf("incremental_source_path must be absolute, got %q", o.IncrementalSourcePath))
	}
	if o.MaxThreadsPerFile > o.MaxTotalThreads {
		o.MaxThreadsPerFile = o.MaxTotalThreads
	}
	return nil
}
