package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

const stopTimeout = 60 * time.Second

const writeQueueDepth = 256

type writeJob struct {
	do func()
}

// baseFactory holds the plumbing shared by every SequentialFileFactory
// backend: the directory, the Timed Buffer configuration, the critical
// error sink, and the single-thread write executor. Concrete backends
// (NIOSequentialFileFactory, MappedSequentialFileFactory) embed it and
// supply only the per-file open/write mechanics.
//
// The teacher's WALStaging goroutine drains one channel per process;
// here each factory owns its own executor, which is the right scope
// since distinct factories may point at distinct directories with
// independent lifecycles.
type baseFactory struct {
	dir          string
	bufferSize   int
	flushTimeout time.Duration

	mu       sync.Mutex
	listener IOCriticalErrorListener
	started  bool
	stopped  bool

	jobs chan writeJob
	done chan struct{}
}

func newBaseFactory(dir string, bufferSize int, flushTimeout time.Duration) baseFactory {
	return baseFactory{
		dir:          dir,
		bufferSize:   bufferSize,
		flushTimeout: flushTimeout,
	}
}

func (f *baseFactory) CreateDirs() error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: f.dir, Err: err}
	}
	return nil
}

func (f *baseFactory) ListFiles(extension string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, &IOError{Op: "readdir", Path: f.dir, Err: err}
	}

	suffix := "." + extension
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (f *baseFactory) SetCriticalErrorListener(l IOCriticalErrorListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *baseFactory) forwardIOError(err error, message string, file SequentialFile) {
	f.mu.Lock()
	listener := f.listener
	f.mu.Unlock()

	if listener == nil {
		cclog.Errorf("[JOURNAL]> %s: %v (no critical-error listener installed)", message, err)
		return
	}
	listener.OnIOError(err, message, file)
}

// Start launches the write executor goroutine. Repeated calls are
// no-ops, matching spec's "start/stop are idempotent" lifecycle rule.
func (f *baseFactory) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}

	f.jobs = make(chan writeJob, writeQueueDepth)
	f.done = make(chan struct{})
	f.started = true
	f.stopped = false

	go f.run(f.jobs, f.done)
	return nil
}

func (f *baseFactory) run(jobs chan writeJob, done chan struct{}) {
	defer close(done)
	for job := range jobs {
		job.do()
	}
}

// submit enqueues a physical write (or callback dispatch) onto the
// single-thread executor, preserving submission order for a given
// file's writes.
func (f *baseFactory) submit(do func()) error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return ErrNotStarted
	}
	jobs := f.jobs
	f.mu.Unlock()

	jobs <- writeJob{do: do}
	return nil
}

// Stop closes the executor's input and waits, bounded by 60 seconds (or
// ctx's own deadline if sooner), for pending writes to drain. A timeout
// is logged and treated as non-fatal; only explicit cancellation of ctx
// is reported back to the caller.
func (f *baseFactory) Stop(ctx context.Context) error {
	f.mu.Lock()
	if !f.started || f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	jobs := f.jobs
	done := f.done
	f.mu.Unlock()

	close(jobs)

	timeoutCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	select {
	case <-done:
		return nil
	case <-timeoutCtx.Done():
		if timeoutCtx.Err() == context.DeadlineExceeded {
			cclog.Warnf("[JOURNAL]> stop(%s) timed out after %s waiting for write executor to drain", f.dir, stopTimeout)
			return nil
		}
		return fmt.Errorf("journal: stop interrupted: %w", timeoutCtx.Err())
	}
}

func joinPath(dir, name string) string {
	return filepath.Join(dir, name)
}
