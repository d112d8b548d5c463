package offset

import (
	"io"
	"log/slog"
)

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the logger. By default all output is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithInvariantCheck runs check against a fresh snapshot after every mutating
// call and panics if it returns an error. It is meant for tests and debug
// builds; pass verify.Snapshot for the full set of checks.
func WithInvariantCheck(check func(*Snapshot) error) Option {
	return func(a *Allocator) {
		a.check = check
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
