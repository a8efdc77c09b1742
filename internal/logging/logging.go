// Package logging builds the loggers handed to runners and executors.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Discard returns a logger that drops everything. Used when no logfile
// was requested.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New returns a timestamped text logger writing to w.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// OpenFile appends a text logger to the file at path, creating it when
// missing. The caller owns the returned closer.
func OpenFile(path string) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open logfile %s: %w", path, err)
	}
	return New(f), f, nil
}

// ForHost tags every record with the target host.
func ForHost(logger *slog.Logger, host string) *slog.Logger {
	return logger.With("host", host)
}
