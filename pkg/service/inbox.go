package service

import "sync"

// inbox holds controller events and timer expiries for the loop. Unlike
// the request queue it is unbounded, so a controller that reports back
// from inside a request it is serving never waits on the loop.
type inbox struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
}

func newInbox() *inbox {
	return &inbox{ready: make(chan struct{}, 1)}
}

func (b *inbox) push(fn func()) {
	b.mu.Lock()
	b.pending = append(b.pending, fn)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// take removes and returns everything pushed so far.
func (b *inbox) take() []func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.pending
	b.pending = nil
	return batch
}

// discard drops pending work and reports how much was dropped.
func (b *inbox) discard() int {
	return len(b.take())
}
