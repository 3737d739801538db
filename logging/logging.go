// Package logging holds the *slog.Logger used by textpage and its engine.
//
// Nothing is logged unless a logger is installed:
//
//	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
//
// A Core built with textpage.WithLogger uses its own logger instead of the
// package-level one.
package logging

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SetLogger installs the package-level logger. Passing nil restores the
// discarding logger. Safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = discard()
	}
	logger.Store(l)
}

// Logger returns the package-level logger, or a discarding logger if none
// was installed. Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	l := discard()
	logger.CompareAndSwap(nil, l)
	return logger.Load()
}

// Or returns l when it is non-nil and Logger() otherwise.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
