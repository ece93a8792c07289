package cli

import (
	"io"
	"log/slog"
)

// newLogger builds the slog logger handed to the engine. Records go to w
// (stderr) so stdout stays parseable.
func newLogger(w io.Writer, cfg Config) *slog.Logger {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("db", cfg.DBAbs)
}
