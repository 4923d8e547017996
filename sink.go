package tracker

import "context"

// ErrorSink receives recoverable failures: delivery errors, snapshot save errors and
// restore errors.
type ErrorSink interface {
	// Report is called with the original error. It must not block for long.
	Report(ctx context.Context, err error)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(ctx context.Context, err error)

// Report implements ErrorSink.
func (fn ErrorSinkFunc) Report(ctx context.Context, err error) {
	fn(ctx, err)
}

// NopErrorSink discards reports.
type NopErrorSink struct{}

// Report implements ErrorSink.
func (NopErrorSink) Report(context.Context, error) {}
