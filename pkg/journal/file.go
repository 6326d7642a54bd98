package journal

import "context"

// SequentialFile is a single append-only file handed out by a
// SequentialFileFactory. Implementations are not safe for concurrent
// Write calls from multiple goroutines; the factory's write executor is
// the single owner of the physical write for any given file.
type SequentialFile interface {
	// Open creates (if absent) and opens the file for append.
	Open() error
	// Close flushes any buffered bytes and releases the file handle.
	Close() error
	// Write submits data for the file. If sync is true, the underlying
	// storage is fsynced before callback fires. callback may be nil.
	Write(data []byte, sync bool, callback func(error)) error
	// Position reports the number of bytes written so far.
	Position() int64
	// Name returns the file's base name, as passed to CreateSequentialFile.
	Name() string
}

// IOCriticalErrorListener is the single sink for unrecoverable I/O
// errors surfaced by a SequentialFileFactory. The factory itself never
// retries; the listener decides whether the failure is fatal to the
// broker.
type IOCriticalErrorListener interface {
	OnIOError(err error, message string, file SequentialFile)
}

// SequentialFileFactory owns a directory of append-only files, coalesces
// writes through a Timed Buffer, and dispatches completions (and, for
// backends without native async I/O, the physical writes themselves) on
// a single-thread write executor.
//
// The source this module is modeled on expresses NIO and mapped-file
// backends as subclasses of one abstract factory; Go has no class
// hierarchy to recast, so both backends instead implement this
// interface directly and share their executor/TimedBuffer plumbing
// through an embedded baseFactory.
type SequentialFileFactory interface {
	// CreateDirs materializes the journal directory, creating any
	// missing parents. Succeeds idempotently if the directory already
	// exists.
	CreateDirs() error
	// ListFiles returns the names of files in the directory whose names
	// end with "." + extension.
	ListFiles(extension string) ([]string, error)
	// CreateSequentialFile returns a handle for name. The file is not
	// opened; the caller calls Open on the returned handle.
	CreateSequentialFile(name string) (SequentialFile, error)
	// Start begins the write executor. Timed Buffers need no start: each
	// file's buffer arms its flush timer on the first queued write.
	// Repeated calls are no-ops.
	Start() error
	// Stop drains the write executor, bounded by a 60 second timeout
	// (or ctx's deadline, whichever is sooner). A timeout is logged, not
	// returned as an error. Repeated calls are no-ops.
	Stop(ctx context.Context) error
	// SetCriticalErrorListener installs the single sink for I/O failures
	// surfaced asynchronously from the write executor.
	SetCriticalErrorListener(l IOCriticalErrorListener)
}
