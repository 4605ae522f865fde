package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a structured logger backed by slog.
type Logger struct {
	*slog.Logger
}

// NewLogger builds the application logger.
// Development uses human-readable text output at debug level, otherwise JSON at info level.
func NewLogger(isDevelopment bool) *Logger {
	return newLogger(os.Stdout, isDevelopment)
}

// NewNopLogger returns a logger that drops every record. Useful in tests.
func NewNopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func newLogger(w io.Writer, isDevelopment bool) *Logger {
	var handler slog.Handler
	if isDevelopment {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithFields returns a child logger that always includes the given fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	return &Logger{Logger: l.Logger.With(args...)}
}
