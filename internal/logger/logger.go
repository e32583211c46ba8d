// Package logger builds the application's slog handler.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/sevigo/merge-warden/internal/config"
)

// New initializes a slog logger based on the provided configuration.
// If output is nil, logs go to stderr so they never interleave with the
// reporter's verdict output on stdout.
func New(cfg config.LogConfig, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stderr
	}

	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		*level = slog.LevelInfo
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
