package journal

import (
	"sync"
	"time"

	"github.com/yourfrienddhruv/hornetq/internal/metrics"
)

// flushFunc performs the physical write for one coalesced flush. It is
// supplied by the owning backend (NIO or mapped) so TimedBuffer stays
// ignorant of how bytes actually reach disk.
type flushFunc func(data []byte, sync bool) error

type pendingWrite struct {
	sync     bool
	callback func(error)
}

// TimedBuffer coalesces writes destined for a single active file: bytes
// accumulate until either the configured buffer size is reached or a
// flush timeout elapses since the first queued write, whichever comes
// first. On flush every pending callback is invoked, in submission
// order, with the outcome of the single underlying write.
type TimedBuffer struct {
	mu sync.Mutex

	bufferSize   int
	flushTimeout time.Duration
	flush        flushFunc

	data    []byte
	pending []pendingWrite
	timer   *time.Timer
	closed  bool
}

// NewTimedBuffer returns a TimedBuffer that flushes via flush once
// buffered bytes reach bufferSize or flushTimeout elapses since the
// first byte queued after the previous flush.
func NewTimedBuffer(bufferSize int, flushTimeout time.Duration, flush flushFunc) *TimedBuffer {
	return &TimedBuffer{
		bufferSize:   bufferSize,
		flushTimeout: flushTimeout,
		flush:        flush,
	}
}

// Enqueue appends data (and its optional completion callback) to the
// buffer. It flushes synchronously, inline, when the buffer size
// threshold is crossed; otherwise it arms (or leaves armed) the flush
// timer.
func (b *TimedBuffer) Enqueue(data []byte, sync bool, callback func(error)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	first := len(b.data) == 0
	b.data = append(b.data, data...)
	b.pending = append(b.pending, pendingWrite{sync: sync, callback: callback})

	if len(b.data) >= b.bufferSize {
		return b.flushLocked("size")
	}

	if first {
		b.timer = time.AfterFunc(b.flushTimeout, b.onTimeout)
	}
	b.mu.Unlock()
	return nil
}

func (b *TimedBuffer) onTimeout() {
	b.mu.Lock()
	if b.closed || len(b.data) == 0 {
		b.mu.Unlock()
		return
	}
	_ = b.flushLocked("timeout")
}

// flushLocked performs the write and invokes every pending callback. It
// must be called with b.mu held, and it releases b.mu before returning
// (the write and callbacks run outside the lock so a slow callback
// cannot block concurrent Enqueue calls).
func (b *TimedBuffer) flushLocked(trigger string) error {
	data := b.data
	pending := b.pending
	anySync := false
	for _, p := range pending {
		if p.sync {
			anySync = true
		}
	}
	b.data = nil
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	metrics.JournalFlushes.WithLabelValues(trigger).Inc()
	metrics.JournalFlushBytes.Observe(float64(len(data)))

	err := b.flush(data, anySync)
	for _, p := range pending {
		if p.callback != nil {
			p.callback(err)
		}
	}
	return err
}

// Deactivate flushes any pending bytes and marks the buffer closed,
// matching spec's requirement that deactivateBuffer drain pending
// writes before the buffer's observer (the active file) is detached.
func (b *TimedBuffer) Deactivate() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	if len(b.data) == 0 {
		b.closed = true
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
		b.mu.Unlock()
		return nil
	}
	err := b.flushLocked("close")
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return err
}

// Pending reports the number of bytes currently buffered, for tests.
func (b *TimedBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
