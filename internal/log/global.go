package log

import (
	"log/slog"
	"sync/atomic"
)

var process atomic.Pointer[Logger]

// SetDefaultLogger makes logger the process logger and routes the slog
// package default through it, so records from code that logs via slog
// directly reach the same output (the log file while the dashboard owns the
// terminal). A nil logger resets to Discard.
func SetDefaultLogger(logger *Logger) {
	if logger == nil {
		logger = Discard()
	}
	process.Store(logger)
	slog.SetDefault(logger.slog)
}

// DefaultLogger returns the process logger. Before a command configures one
// it is a discarding logger, so early failures never write to the terminal
// twice.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	l := Discard()
	if process.CompareAndSwap(nil, l) {
		return l
	}
	return process.Load()
}
