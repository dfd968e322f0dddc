package log

import (
	"sync"
	"testing"
)

// recordingLogger keeps every event it receives.
type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingLogger) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	multi := NewMultiLogger(a, nil, b)

	multi.Log(Event{SessionID: "s-1"})

	for i, r := range []*recordingLogger{a, b} {
		got := r.Events()
		if len(got) != 1 {
			t.Fatalf("logger %d: got %d events, want 1", i, len(got))
		}
		if got[0].SessionID != "s-1" {
			t.Errorf("logger %d: SessionID = %q", i, got[0].SessionID)
		}
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	NewMultiLogger().Log(Event{})
}
