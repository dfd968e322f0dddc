// Package observer provides a bounded registry of observers addressed by
// generation-checked handles.
//
// A [Handle] is a slot index plus the slot's generation at registration
// time. Unregistering bumps the generation, so a handle kept after
// unregistration can never match an observer that later reuses the slot.
package observer

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity is the default number of observer slots.
const DefaultCapacity = 4

// Registry errors.
var (
	ErrFull        = errors.New("observer registry full")
	ErrStaleHandle = errors.New("stale or unknown observer handle")
)

// Handle identifies a registration.
type Handle struct {
	index      uint32
	generation uint32
}

// String returns a printable form of the handle.
func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.index, h.generation)
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

type slot[T any] struct {
	value      T
	generation uint32
	used       bool
}

// Registry stores up to a fixed number of observers.
type Registry[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
}

// New creates a registry with capacity slots.
func New[T any](capacity int) *Registry[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry[T]{slots: make([]slot[T], capacity)}
}

// Register stores v in the first free slot.
func (r *Registry[T]) Register(v T) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		s := &r.slots[i]
		if s.used {
			continue
		}
		s.generation++
		s.used = true
		s.value = v
		return Handle{index: uint32(i), generation: s.generation}, nil
	}
	return Handle{}, ErrFull
}

// Unregister frees the slot identified by h.
func (r *Registry[T]) Unregister(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.lookup(h)
	if !ok {
		return ErrStaleHandle
	}
	var zero T
	s.value = zero
	s.used = false
	return nil
}

// Get returns the observer for h.
func (r *Registry[T]) Get(h Handle) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Snapshot returns the registered observers in slot order.
func (r *Registry[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []T
	for _, s := range r.slots {
		if s.used {
			out = append(out, s.value)
		}
	}
	return out
}

// Len returns the number of registered observers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.slots {
		if s.used {
			n++
		}
	}
	return n
}

func (r *Registry[T]) lookup(h Handle) (*slot[T], bool) {
	if int(h.index) >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[h.index]
	if !s.used || s.generation != h.generation {
		return nil, false
	}
	return s, true
}
