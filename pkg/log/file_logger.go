package log

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends trace events to a CBOR file. It is safe for
// concurrent use.
type FileLogger struct {
	mu sync.Mutex

	path    string
	file    *os.File
	buf     *bufio.Writer
	encoder *cbor.Encoder
	written int
	closed  bool
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{
		path:    path,
		file:    f,
		buf:     buf,
		encoder: NewEncoder(buf),
	}, nil
}

// Log encodes the event. Encoding errors are dropped so tracing never
// disturbs the service.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err == nil {
		l.written++
	}
}

// Flush writes buffered events to the file.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	return l.buf.Flush()
}

// Written returns the number of events encoded so far.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Path returns the trace file path.
func (l *FileLogger) Path() string {
	return l.path
}

// Close flushes and closes the file. Later calls to Log are ignored and
// repeated Close calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.buf.Flush()
	if err := l.file.Close(); err != nil {
		return err
	}
	return flushErr
}

var _ Logger = (*FileLogger)(nil)
