package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session"+Extension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("trace file missing: %v", err)
	}
	if logger.Path() != path {
		t.Errorf("Path = %q, want %q", logger.Path(), path)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session"+Extension)

	for run := 0; run < 2; run++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatal(err)
		}
		logger.Log(Event{Timestamp: time.Now(), SessionID: "run"})
		if err := logger.Close(); err != nil {
			t.Fatal(err)
		}
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestFileLoggerIgnoresLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session"+Extension)
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	logger.Log(Event{SessionID: "a"})
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	logger.Log(Event{SessionID: "b"})

	if err := logger.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if logger.Written() != 1 {
		t.Errorf("Written = %d, want 1", logger.Written())
	}
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session"+Extension)
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(Event{Timestamp: time.Now(), SessionID: "c"})
			}
		}()
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != writers*perWriter {
		t.Errorf("got %d events, want %d", len(events), writers*perWriter)
	}
}
