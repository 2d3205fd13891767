// Package observer keeps an identity-keyed set of listeners.
//
// Entries can be invalidated through the Handle returned at registration.
// An invalidated entry is skipped by NotifyAll and pruned lazily on the next
// identity lookup. Observers are usually pointers. An observer whose dynamic
// value cannot be compared, such as a func, never matches an existing entry:
// each registration adds a new one, and it can only be cleared through its
// Handle.
package observer

import (
	"reflect"
	"sync"
)

// Handle identifies one registration. The zero Handle matches nothing.
type Handle struct {
	gen uint64
}

// Valid reports whether the handle came from a registration.
func (h Handle) Valid() bool {
	return h.gen != 0
}

type entry[T comparable] struct {
	observer T
	gen      uint64
	cleared  bool
}

// Registry is a set of observers keyed by identity.
type Registry[T comparable] struct {
	mu      sync.Mutex
	entries []*entry[T]
	gen     uint64
}

// New creates an empty registry.
func New[T comparable]() *Registry[T] {
	return &Registry[T]{}
}

// Register adds o unless an entry with the same identity exists, in which
// case the existing handle is returned.
func (r *Registry[T]) Register(o T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.lookup(o); e != nil {
		return Handle{gen: e.gen}
	}
	r.gen++
	r.entries = append(r.entries, &entry[T]{observer: o, gen: r.gen})
	return Handle{gen: r.gen}
}

// Remove drops the entry for o. No-op when o is not registered.
func (r *Registry[T]) Remove(o T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.lookupAll() {
		if same(e.observer, o) {
			e.cleared = true
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Invalidate clears the entry registered under h. The entry stays in place,
// inert, until the next identity lookup prunes it. Stale handles are ignored.
func (r *Registry[T]) Invalidate(h Handle) {
	if !h.Valid() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.gen == h.gen {
			e.cleared = true
			return
		}
	}
}

// NotifyAll calls fn for each live entry of a snapshot taken at call time.
// Entries removed or invalidated while notifying are skipped.
func (r *Registry[T]) NotifyAll(fn func(T)) {
	r.mu.Lock()
	snapshot := append([]*entry[T](nil), r.entries...)
	r.mu.Unlock()

	for _, e := range snapshot {
		r.mu.Lock()
		cleared := e.cleared
		r.mu.Unlock()
		if cleared {
			continue
		}
		fn(e.observer)
	}
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if !e.cleared {
			n++
		}
	}
	return n
}

// lookup prunes cleared entries and returns the entry for o, if any.
func (r *Registry[T]) lookup(o T) *entry[T] {
	for _, e := range r.lookupAll() {
		if same(e.observer, o) {
			return e
		}
	}
	return nil
}

// lookupAll prunes cleared entries and returns the remaining ones.
func (r *Registry[T]) lookupAll() []*entry[T] {
	live := r.entries[:0]
	for _, e := range r.entries {
		if !e.cleared {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = live
	return r.entries
}

// same reports whether a and b are the same observer. It never panics on
// interface values holding uncomparable types.
func same[T comparable](a, b T) bool {
	va, vb := reflect.ValueOf(any(a)), reflect.ValueOf(any(b))
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
