package wildcard

import (
	"sort"
	"sync"
	"sync/atomic"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// Reducer combines the accumulator with the next value in specificity
// order. It replaces the source implementation's reflective "Mergeable"
// type-check (spec.md §9 Design Notes): callers that want merge semantics
// supply one at construction; callers that want "first match wins" pass
// nil.
//
// Reducer must not mutate the identity of either argument in a way that
// is observable to a concurrent Get; returning a fresh value is always
// safe, returning acc in place is the common fast path.
type Reducer[V any] func(acc, next V) V

// Listener observes any mutation that may have altered query results.
// OnChange runs synchronously on the mutating goroutine after the
// repository's write lock has been released (isolated: a panicking
// listener is recovered and logged, and does not interrupt the remaining
// listeners or the caller of the mutation).
type Listener interface {
	OnChange()
}

type patternEntry[V any] struct {
	compiled  *compiledPattern
	value     V
	immutable bool
}

// Entry is a read-only snapshot of one registered pattern, returned by
// Snapshot for persistence/debugging purposes.
type Entry struct {
	Pattern   string
	Immutable bool
}

// Repository resolves lookup keys against a set of wildcard patterns,
// merging the values of every matching pattern in specificity order
// (spec.md §4.1), behind a cache that stays coherent with the last
// completed mutation.
type Repository[V any] struct {
	mu       sync.RWMutex
	reducer  Reducer[V]
	def      V
	patterns map[string]*patternEntry[V]

	// cache holds a *sync.Map; swapped to an empty instance at the start
	// of every mutation (clear-before-mutate, spec.md §4.1 Cache
	// coherence protocol) so that a reader which already holds a
	// reference to the previous map can never observe a post-mutation
	// insert into a pre-mutation snapshot. Reads probe it via atomic
	// load without taking mu, matching the spec's "without the lock"
	// fast path; sync.Map itself tolerates concurrent Store calls from
	// readers holding only the RLock.
	cache atomic.Pointer[sync.Map]

	listenersMu sync.Mutex
	listeners   []Listener
}

// New creates a Repository with the given default value and an optional
// reducer. A nil reducer means the least-specific matching pattern's
// value is returned unchanged and every more specific match is ignored
// (spec.md §4.1 Merge policy, non-mergeable branch) — this is the literal
// spec behavior, not a simplification; see SPEC_FULL.md §4.1.
func New[V any](def V, reducer Reducer[V]) *Repository[V] {
	r := &Repository[V]{
		reducer:  reducer,
		def:      def,
		patterns: make(map[string]*patternEntry[V]),
	}
	r.cache.Store(&sync.Map{})
	return r
}

// Add registers or overwrites pattern. If immutable is true the pattern
// can never be removed by a later Remove call, though it may still be
// overwritten by a later Add (spec.md Invariant PR-3). Once a pattern has
// been marked immutable it stays immutable even if a later Add passes
// immutable=false.
func (r *Repository[V]) Add(pattern string, value V, immutable bool) error {
	compiled, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cache.Store(&sync.Map{})

	if existing, ok := r.patterns[pattern]; ok {
		immutable = immutable || existing.immutable
	}
	r.patterns[pattern] = &patternEntry[V]{compiled: compiled, value: value, immutable: immutable}
	r.mu.Unlock()

	r.notifyListeners()
	return nil
}

// Remove deletes pattern unless it was registered immutable, in which
// case it is left in place and a debug entry is logged (spec.md §4.1
// remove). Removing an unknown pattern is a no-op.
func (r *Repository[V]) Remove(pattern string) error {
	r.mu.Lock()
	entry, ok := r.patterns[pattern]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if entry.immutable {
		r.mu.Unlock()
		cclog.Debugf("wildcard: ignoring remove of immutable pattern %q", pattern)
		return nil
	}

	r.cache.Store(&sync.Map{})
	delete(r.patterns, pattern)
	r.mu.Unlock()

	r.notifyListeners()
	return nil
}

// Get resolves key against every registered pattern and returns the
// merged value, or the default if nothing matches.
func (r *Repository[V]) Get(key string) V {
	if c := r.cache.Load(); c != nil {
		if v, ok := c.Load(key); ok {
			return v.(V)
		}
	}

	r.mu.RLock()
	value := r.computeLocked(key)
	if c := r.cache.Load(); c != nil {
		c.Store(key, value)
	}
	r.mu.RUnlock()
	return value
}

// computeLocked must be called with at least r.mu held for reading.
func (r *Repository[V]) computeLocked(key string) V {
	matches := make([]*patternEntry[V], 0, 4)
	for _, entry := range r.patterns {
		if entry.compiled.matches(key) {
			matches = append(matches, entry)
		}
	}

	if len(matches) == 0 {
		return r.def
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return compareSpecificity(matches[i].compiled, matches[j].compiled) > 0
	})

	acc := matches[0].value
	if r.reducer != nil {
		for _, m := range matches[1:] {
			acc = r.reducer(acc, m.value)
		}
	}
	return acc
}

// SetDefault sets the fallback value returned when no pattern matches,
// and clears the cache.
func (r *Repository[V]) SetDefault(value V) {
	r.mu.Lock()
	r.cache.Store(&sync.Map{})
	r.def = value
	r.mu.Unlock()

	r.notifyListeners()
}

// Clear drops every pattern, listener and cache entry.
func (r *Repository[V]) Clear() {
	r.mu.Lock()
	r.cache.Store(&sync.Map{})
	r.patterns = make(map[string]*patternEntry[V])
	r.mu.Unlock()

	r.listenersMu.Lock()
	r.listeners = nil
	r.listenersMu.Unlock()
}

// CacheSize reports the number of entries currently cached, for tests.
func (r *Repository[V]) CacheSize() int {
	c := r.cache.Load()
	if c == nil {
		return 0
	}
	n := 0
	c.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// ValueAt returns the raw value registered for pattern, exactly as
// passed to Add, without resolving it against any other pattern. It
// exists for persistence layers such as internal/catalog that need each
// pattern's own value rather than Get's merged result.
func (r *Repository[V]) ValueAt(pattern string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.patterns[pattern]
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Snapshot returns the registered patterns (without their values), for
// persistence layers such as internal/catalog.
func (r *Repository[V]) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.patterns))
	for text, entry := range r.patterns {
		out = append(out, Entry{Pattern: text, Immutable: entry.immutable})
	}
	return out
}

// RegisterListener adds l to the set of listeners notified after every
// mutation. Registration is safe against concurrent mutations.
func (r *Repository[V]) RegisterListener(l Listener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, l)
}

// UnregisterListener removes l, if present.
func (r *Repository[V]) UnregisterListener(l Listener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// notifyListeners calls OnChange on a consistent snapshot of the
// listener set. Each call is isolated: a panicking listener is recovered
// and logged, never aborting the remaining listeners.
func (r *Repository[V]) notifyListeners() {
	r.listenersMu.Lock()
	snapshot := make([]Listener, len(r.listeners))
	copy(snapshot, r.listeners)
	r.listenersMu.Unlock()

	for _, l := range snapshot {
		callListener(l)
	}
}

func callListener(l Listener) {
	defer func() {
		if rec := recover(); rec != nil {
			cclog.Errorf("wildcard: listener %T panicked: %v", l, rec)
		}
	}()
	l.OnChange()
}
