package gemtracker_test

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
)

// testLogWriter forwards complete lines to t.Log with a prefix. A trailing
// partial line is flushed when the test is cleaned up.
type testLogWriter struct {
	t      *testing.T
	prefix string

	mu      sync.Mutex
	pending []byte
}

func newTestLogWriter(t *testing.T, prefix string) *testLogWriter {
	t.Helper()
	w := &testLogWriter{t: t, prefix: prefix}
	t.Cleanup(w.flush)
	return w
}

func newTestLogger(t *testing.T, prefix string) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(newTestLogWriter(t, prefix), nil))
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.emit(w.pending[:i])
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *testLogWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.emit(w.pending)
		w.pending = nil
	}
}

func (w *testLogWriter) emit(line []byte) {
	if line = bytes.TrimSpace(line); len(line) > 0 {
		w.t.Logf("[%s] %s", w.prefix, line)
	}
}
