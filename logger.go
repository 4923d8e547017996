package tracker

import "log/slog"

// Logger receives the client's diagnostics: restore outcomes, flush summaries and every error
// handed to the ErrorSink. Arguments are slog-style key/value pairs.
type Logger interface {
	// Debug logs per-pass details such as skipped ticks and flush counts.
	Debug(msg string, args ...any)
	// Info logs restore results.
	Info(msg string, args ...any)
	// Warn logs reported delivery and persistence errors.
	Warn(msg string, args ...any)
	// Error logs failures that leave the client degraded, such as an unreadable snapshot.
	Error(msg string, args ...any)
}

var _ Logger = (*slog.Logger)(nil)

// NopLogger drops everything. It is the default when WithLogger is not given.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, ...any) {}
