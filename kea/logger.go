package kea

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with KEA-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds a file path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithBand adds a band number field to the logger.
func (l *Logger) WithBand(band uint) *Logger {
	return &Logger{
		Logger: l.Logger.With("band", band),
	}
}

// LogOpen logs opening or creating a file.
func (l *Logger) LogOpen(ctx context.Context, op string, bands uint, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"bands", bands,
		)
	}
}

// LogClose logs closing a file.
func (l *Logger) LogClose(ctx context.Context, err error) {
	if err != nil {
		l.WarnContext(ctx, "close failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "closed")
	}
}

// LogOverview logs an overview being created or removed.
func (l *Logger) LogOverview(ctx context.Context, op string, band, level uint, xSize, ySize uint64) {
	l.DebugContext(ctx, "overview "+op,
		"band", band,
		"level", level,
		"x_size", xSize,
		"y_size", ySize,
	)
}

// LogAttributeTable logs an attribute table being persisted or loaded.
func (l *Logger) LogAttributeTable(ctx context.Context, op string, band uint, rows uint64, cols int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "attribute table "+op+" failed",
			"band", band,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "attribute table "+op,
			"band", band,
			"rows", rows,
			"columns", cols,
		)
	}
}
