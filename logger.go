package mseed

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with mseed-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000),
		})),
	}
}

// WithSourceID adds a source_id field to the logger.
func (l *Logger) WithSourceID(sid SourceID) *Logger {
	return &Logger{
		Logger: l.Logger.With("source_id", sid.String()),
	}
}

// LogIngest logs the merge of one record or sample run.
func (l *Logger) LogIngest(sid SourceID, start NSTime, samples int64, err error) {
	if err != nil {
		l.Error("ingest failed",
			"source_id", sid.String(),
			"start", start.String(),
			"error", err,
		)
	} else {
		l.Debug("ingest completed",
			"source_id", sid.String(),
			"start", start.String(),
			"samples", samples,
		)
	}
}

// LogOverlap logs samples dropped or replaced while resolving overlaps.
func (l *Logger) LogOverlap(sid SourceID, dropped int64, replaced bool) {
	l.Warn("overlapping data resolved",
		"source_id", sid.String(),
		"samples", dropped,
		"replaced_existing", replaced,
	)
}

// LogPack logs a pack invocation.
func (l *Logger) LogPack(records int, samples int64, err error) {
	if err != nil {
		l.Error("pack failed",
			"records", records,
			"samples", samples,
			"error", err,
		)
	} else {
		l.Debug("pack completed",
			"records", records,
			"samples", samples,
		)
	}
}

// LogTrim logs a record trim.
func (l *Logger) LogTrim(sid SourceID, status TrimStatus, kept int64, err error) {
	if err != nil {
		l.Error("trim failed",
			"source_id", sid.String(),
			"error", err,
		)
	} else {
		l.Debug("trim completed",
			"source_id", sid.String(),
			"status", status.String(),
			"samples", kept,
		)
	}
}

// LogMaterialize logs the decode of a segment's record list.
func (l *Logger) LogMaterialize(sid SourceID, records int, samples int64, err error) {
	if err != nil {
		l.Error("materialize failed",
			"source_id", sid.String(),
			"records", records,
			"error", err,
		)
	} else {
		l.Debug("materialize completed",
			"source_id", sid.String(),
			"records", records,
			"samples", samples,
		)
	}
}
