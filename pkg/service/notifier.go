package service

import "sync"

// notifier delivers observer callbacks on its own goroutine, in the order
// they were pushed. The queue is unbounded so the service loop never
// blocks on a slow observer, and observers may call back into the API.
type notifier struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newNotifier() *notifier {
	return &notifier{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (n *notifier) push(fn func()) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.pending = append(n.pending, fn)
	n.mu.Unlock()
	n.signal()
}

func (n *notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) run() {
	defer close(n.done)
	for {
		n.mu.Lock()
		batch := n.pending
		n.pending = nil
		closed := n.closed
		n.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-n.wake
	}
}

// close drains what is queued and waits for the goroutine to exit.
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.signal()
	<-n.done
}
