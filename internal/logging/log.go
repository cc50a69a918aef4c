package logging

import (
	"log/slog"
	"sync/atomic"
)

// logger holds a caller-supplied logger. Nil means "derive from slog.Default()".
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches the slog.Default()-derived logger so Logger does not
// allocate on every call. SetLogger clears it, which is how callers pick up a
// later slog.SetDefault.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the current logger. It never returns nil and is safe to call
// from multiple goroutines.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "failwatch")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	// A concurrent SetLogger may have cleared the cache between the CAS and
	// this load; fall back to the local value so we never return nil.
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// SetLogger replaces the logger. A nil l resets to the slog.Default() derived
// logger on the next Logger call.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
