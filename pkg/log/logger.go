package log

// Logger receives trace events. Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent
	// use and must not block the caller for long.
	Log(event Event)
}

// NoopLogger discards all events. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
