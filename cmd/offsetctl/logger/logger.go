// Package logger builds the slog logger that offsetctl hands to the
// allocator.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Options configures the logger.
type Options struct {
	Level  slog.Level // Minimum log level
	JSON   bool       // Emit JSON records instead of text
	File   string     // Append to this file instead of Output
	Output io.Writer  // Default: os.Stderr
}

// Discard returns a logger that drops all output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New builds a logger. The returned close function releases the log file
// and is a no-op when logging to Output.
func New(opts Options) (*slog.Logger, func() error, error) {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	closeFn := func() error { return nil }

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = f.Close
	}

	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, hopts)), closeFn, nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), closeFn, nil
}
