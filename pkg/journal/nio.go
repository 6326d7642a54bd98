package journal

import (
	"os"
	"sync"
	"time"
)

// NIOSequentialFileFactory is the plain os.File backend: unbuffered
// writes are dispatched onto the single-thread write executor; buffered
// writes flush through a per-file TimedBuffer whose physical write runs
// inline on whichever goroutine triggers the flush (Enqueue or the
// flush timer). The TimedBuffer releases its mutex before writing; the
// file's own mutex, taken in writeNow, keeps physical writes from
// interleaving.
type NIOSequentialFileFactory struct {
	baseFactory
}

// NewNIOSequentialFileFactory returns a factory rooted at dir. A
// bufferSize of 0 disables the Timed Buffer: every write goes straight
// to the executor.
func NewNIOSequentialFileFactory(dir string, bufferSize int, flushTimeout time.Duration) *NIOSequentialFileFactory {
	return &NIOSequentialFileFactory{baseFactory: newBaseFactory(dir, bufferSize, flushTimeout)}
}

func (f *NIOSequentialFileFactory) CreateSequentialFile(name string) (SequentialFile, error) {
	sf := &nioSequentialFile{
		factory: f,
		name:    name,
		path:    joinPath(f.dir, name),
	}
	if f.bufferSize > 0 {
		sf.buffer = NewTimedBuffer(f.bufferSize, f.flushTimeout, sf.flushRaw)
	}
	return sf, nil
}

type nioSequentialFile struct {
	factory *NIOSequentialFileFactory
	name    string
	path    string

	mu     sync.Mutex
	f      *os.File
	pos    int64
	closed bool

	buffer *TimedBuffer
}

func (s *nioSequentialFile) Name() string { return s.name }

func (s *nioSequentialFile) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *nioSequentialFile) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Op: "open", Path: s.path, Err: err}
	}
	if info, statErr := f.Stat(); statErr == nil {
		s.pos = info.Size()
	}
	s.f = f
	return nil
}

func (s *nioSequentialFile) Close() error {
	s.mu.Lock()
	buffer := s.buffer
	s.mu.Unlock()

	if buffer != nil {
		if err := buffer.Deactivate(); err != nil {
			s.factory.forwardIOError(err, "deactivate buffer on close", s)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.f == nil {
		s.closed = true
		return nil
	}
	err := s.f.Close()
	s.closed = true
	if err != nil {
		return &IOError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

func (s *nioSequentialFile) Write(data []byte, sync bool, callback func(error)) error {
	s.mu.Lock()
	closed := s.closed
	buffer := s.buffer
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if buffer != nil {
		return buffer.Enqueue(data, sync, callback)
	}
	return s.submitWrite(data, sync, callback)
}

func (s *nioSequentialFile) submitWrite(data []byte, sync bool, callback func(error)) error {
	return s.factory.submit(func() {
		err := s.writeNow(data, sync)
		if err != nil {
			s.factory.forwardIOError(err, "write", s)
		}
		if callback != nil {
			callback(err)
		}
	})
}

// flushRaw is the TimedBuffer's flushFunc.
func (s *nioSequentialFile) flushRaw(data []byte, sync bool) error {
	err := s.writeNow(data, sync)
	if err != nil {
		s.factory.forwardIOError(err, "flush", s)
	}
	return err
}

func (s *nioSequentialFile) writeNow(data []byte, sync bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.f == nil {
		return ErrClosed
	}
	n, err := s.f.Write(data)
	s.pos += int64(n)
	if err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if sync {
		if err := s.f.Sync(); err != nil {
			return &IOError{Op: "fsync", Path: s.path, Err: err}
		}
	}
	return nil
}
