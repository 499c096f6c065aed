package logging

import (
	"bytes"
	"log/slog"
	"sync"
)

// TB is the part of testing.TB that ForTest needs.
type TB interface {
	Helper()
	Logf(format string, args ...any)
	Cleanup(func())
}

// ForTest returns a text logger that writes each record to tb.Logf. Records
// emitted after the test finished are dropped.
func ForTest(tb TB, level Level) *slog.Logger {
	w := &tbWriter{tb: tb}
	tb.Cleanup(w.close)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type tbWriter struct {
	mu     sync.Mutex
	tb     TB
	closed bool
}

func (w *tbWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.tb.Logf("%s", bytes.TrimRight(p, "\n"))
	}
	return len(p), nil
}

func (w *tbWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
