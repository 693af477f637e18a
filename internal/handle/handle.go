// Package handle implements generation-tagged handle registries.
//
// A Handle names a slot in a Registry. The low 32 bits hold the slot index
// plus one, the high 32 bits hold the slot generation. Zero is never issued
// and serves as the null handle. Removing an entry bumps the slot generation,
// so copies of a removed handle resolve to nothing even after the slot is
// reused.
package handle

import (
	"fmt"
	"sync"
)

// Handle is an opaque reference to a registry entry.
type Handle uint64

// Null is the handle that never resolves.
const Null Handle = 0

func makeHandle(index uint32, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

// IsNull reports whether h is the null handle.
func (h Handle) IsNull() bool { return h == Null }

func (h Handle) index() (uint32, bool) {
	lo := uint32(h)
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func (h Handle) generation() uint32 { return uint32(h >> 32) }

// String renders the handle as index:generation for logs.
func (h Handle) String() string {
	idx, ok := h.index()
	if !ok {
		return "null"
	}
	return fmt.Sprintf("%d:%d", idx, h.generation())
}

type slot[T any] struct {
	gen   uint32
	live  bool
	value T
}

// Registry owns values addressed by handles. It is safe for concurrent use.
type Registry[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
	live  int
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Insert stores v and returns its handle.
func (r *Registry[T]) Insert(v T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		// Generations start at 1 so no issued handle is zero in the high word.
		r.slots = append(r.slots, slot[T]{gen: 1})
	}

	s := &r.slots[idx]
	s.live = true
	s.value = v
	r.live++
	return makeHandle(idx, s.gen)
}

// Get returns the value for h. The second result is false for the null
// handle, removed handles and handles never issued by this registry.
func (r *Registry[T]) Get(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Remove deletes the entry for h and returns its value. Removing a handle
// that does not resolve is a no-op reporting false.
func (r *Registry[T]) Remove(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	s := r.lookup(h)
	if s == nil {
		return zero, false
	}

	v := s.value
	s.value = zero
	s.live = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	idx, _ := h.index()
	r.free = append(r.free, idx)
	r.live--
	return v, true
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Range calls fn for each live entry until fn returns false. The registry is
// locked for the duration; fn must not call back into it.
func (r *Registry[T]) Range(fn func(Handle, T) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		s := &r.slots[i]
		if !s.live {
			continue
		}
		if !fn(makeHandle(uint32(i), s.gen), s.value) {
			return
		}
	}
}

func (r *Registry[T]) lookup(h Handle) *slot[T] {
	idx, ok := h.index()
	if !ok || int(idx) >= len(r.slots) {
		return nil
	}
	s := &r.slots[idx]
	if !s.live || s.gen != h.generation() {
		return nil
	}
	return s
}
