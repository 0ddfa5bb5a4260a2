package logger

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide structured logger. Diagnostics go to
// stderr so command output on stdout stays scriptable.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)

	slog.SetDefault(logger)
	return logger
}
