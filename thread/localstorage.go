// File: thread/localstorage.go
// Author: momentics <momentics@gmail.com>
//
// Per-thread local storage slots. A slot maps each thread to a lazily
// allocated, exclusively owned value. The value is destroyed on
// whichever happens first: the owning thread's teardown or the slot's
// destruction.

package thread

import "sync"

// storageSlot is the teardown contract between a handle and the slots
// holding values for it.
type storageSlot interface {
	threadTornDown(h *Handle)
}

// LocalStorage is a declaration-scoped, per-thread keyed value store.
// Values from different threads never observe each other and never
// contend; only the slot's internal table briefly serializes around
// insert and lookup.
type LocalStorage[T any] struct {
	rt      *Runtime
	alloc   func() *T
	dealloc func(*T)

	mu        sync.Mutex
	values    map[*Handle]*T
	destroyed bool
}

// NewLocalStorage declares a slot. alloc produces a new owned value on
// a thread's first Get (nil means new(T)); dealloc, when non-nil, is
// invoked exactly once per value, at thread teardown or slot
// destruction.
func NewLocalStorage[T any](rt *Runtime, alloc func() *T, dealloc func(*T)) *LocalStorage[T] {
	if alloc == nil {
		alloc = func() *T { return new(T) }
	}
	return &LocalStorage[T]{
		rt:      rt,
		alloc:   alloc,
		dealloc: dealloc,
		values:  make(map[*Handle]*T),
	}
}

// Get returns the calling thread's value, allocating it on first use.
// Every subsequent call from the same thread returns the same value.
// After Destroy the slot is dead and Get returns nil.
func (s *LocalStorage[T]) Get() *T {
	h := s.rt.Current()
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	if v, ok := s.values[h]; ok {
		s.mu.Unlock()
		return v
	}
	v := s.alloc()
	s.values[h] = v
	s.mu.Unlock()
	h.registerSlot(s)
	return v
}

// Len reports the number of live (thread, value) entries.
func (s *LocalStorage[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// threadTornDown releases the entry owned by a terminating thread.
// Invoked on the thread itself, before its termination becomes visible,
// so it never races a Get for the same (slot, thread) pair.
func (s *LocalStorage[T]) threadTornDown(h *Handle) {
	s.mu.Lock()
	v, ok := s.values[h]
	if ok {
		delete(s.values, h)
	}
	s.mu.Unlock()
	if ok && s.dealloc != nil {
		s.dealloc(v)
	}
}

// Destroy deallocates every still-live entry across all threads and
// marks the slot dead. Typically called at process or scope teardown.
// Idempotent.
func (s *LocalStorage[T]) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	vals := s.values
	s.values = nil
	s.mu.Unlock()
	if s.dealloc == nil {
		return
	}
	for _, v := range vals {
		s.dealloc(v)
	}
}
