package vecingest

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/hupe1980/vecingest/status"
)

// Logger wraps slog.Logger with vecingest-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", name),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// WithStage adds an insert stage field to the logger.
func (l *Logger) WithStage(stage InsertStage) *Logger {
	return &Logger{
		Logger: l.Logger.With("stage", stage.String()),
	}
}

// LogInsert logs the outcome of an insert call. A rejected insert is logged
// at warn level with the stage it failed in and the status attribution.
func (l *Logger) LogInsert(ctx context.Context, table string, rows int, stage InsertStage, err error) {
	if err != nil {
		attrs := []any{
			"table", table,
			"rows", rows,
			"stage", stage.String(),
			"code", status.CodeOf(err).String(),
			"error", err,
		}
		var se *status.Error
		if errors.As(err, &se) {
			if se.Row >= 0 {
				attrs = append(attrs, "row", se.Row)
			}
			if se.Column != "" {
				attrs = append(attrs, "column", se.Column)
			}
		}
		l.WarnContext(ctx, "insert rejected", attrs...)
	} else {
		l.DebugContext(ctx, "insert committed",
			"table", table,
			"rows", rows,
		)
	}
}

// LogCreateTable logs a table creation.
func (l *Logger) LogCreateTable(ctx context.Context, table string, columns int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create table failed",
			"table", table,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "table created",
			"table", table,
			"columns", columns,
		)
	}
}

// LogDropTable logs a table drop.
func (l *Logger) LogDropTable(ctx context.Context, table string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "drop table failed",
			"table", table,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "table dropped",
			"table", table,
		)
	}
}

// LogIndex logs an index create or drop.
func (l *Logger) LogIndex(ctx context.Context, op, table, index string, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"table", table,
			"index", index,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, op+" completed",
			"table", table,
			"index", index,
		)
	}
}
