// Package indexalloc provides a bounded pool of small integer identifiers.
//
// The pool hands out ids in round-robin order starting at 1, so a freed id
// is not immediately reused while other ids are available. Id 0 comes last:
// Alloc wraps round to it once 1..max are taken. Callers that need a
// well-known id, such as the default group, pin it with Reserve first.
package indexalloc

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// Allocator errors.
var (
	ErrExhausted    = errors.New("index pool exhausted")
	ErrOutOfRange   = errors.New("index out of range")
	ErrNotAllocated = errors.New("index not allocated")
	ErrInUse        = errors.New("index already in use")
)

// Allocator tracks ids 0..Max inclusive in a bitmap.
type Allocator struct {
	mu sync.Mutex

	words []uint64
	max   int
	next  int
	used  int
}

// New creates an allocator covering ids 0..max inclusive.
func New(max int) *Allocator {
	if max < 0 {
		max = 0
	}
	return &Allocator{
		words: make([]uint64, max/64+1),
		max:   max,
		next:  1,
	}
}

// Max returns the highest id the pool can hand out.
func (a *Allocator) Max() int {
	return a.max
}

// Alloc returns the next free id, searching forward from the id after the
// last allocation and wrapping around.
func (a *Allocator) Alloc() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.max + 1
	start := a.next
	if start > a.max {
		start = 0
	}

	for i := 0; i < size; i++ {
		id := (start + i) % size
		if !a.isSet(id) {
			a.set(id)
			a.next = id + 1
			return id, nil
		}
	}
	return -1, ErrExhausted
}

// Reserve marks a specific id as allocated.
func (a *Allocator) Reserve(id int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id < 0 || id > a.max {
		return fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	if a.isSet(id) {
		return fmt.Errorf("%w: %d", ErrInUse, id)
	}
	a.set(id)
	return nil
}

// Free returns an id to the pool.
func (a *Allocator) Free(id int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id < 0 || id > a.max {
		return fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	if !a.isSet(id) {
		return fmt.Errorf("%w: %d", ErrNotAllocated, id)
	}
	a.words[id/64] &^= 1 << uint(id%64)
	a.used--
	return nil
}

// InUse reports whether id is currently allocated.
func (a *Allocator) InUse(id int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id < 0 || id > a.max {
		return false
	}
	return a.isSet(id)
}

// Available returns the number of free ids.
func (a *Allocator) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.max + 1 - a.used
}

// Used returns the number of allocated ids.
func (a *Allocator) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, w := range a.words {
		n += bits.OnesCount64(w)
	}
	return n
}

func (a *Allocator) isSet(id int) bool {
	return a.words[id/64]&(1<<uint(id%64)) != 0
}

func (a *Allocator) set(id int) {
	a.words[id/64] |= 1 << uint(id%64)
	a.used++
}
