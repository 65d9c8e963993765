// Package logging provides structured logging for procman sessions.
// It wraps Go's log/slog package and doubles as the diagnostic sink
// managers and the dispatch gateway report to.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shinji-kodama/procman/internal/manager"
	"github.com/shinji-kodama/procman/internal/model"
)

// Log levels supported by the logger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Logger provides structured logging. It is safe for concurrent use, and a
// nil *Logger discards everything.
type Logger struct {
	logger *slog.Logger
	file   *closer
}

// closer owns a log file shared by a Logger and every child derived
// from it with With.
type closer struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger creates a Logger writing to w. level is one of the Level
// constants (case-insensitive, default INFO); format is FormatJSON or
// FormatText (default text).
func NewLogger(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{logger: slog.New(handler)}
}

// Open creates a Logger appending to the file at path, creating parent
// directories as needed. An empty path logs to stderr. Close releases the
// file.
func Open(path, level, format string) (*Logger, error) {
	if path == "" {
		return NewLogger(os.Stderr, level, format), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, model.WrapFault(model.DirectoryCannotCreate,
			fmt.Sprintf("failed to create log directory for %s", path), err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, model.WrapFault(model.FileCannotOpen,
			fmt.Sprintf("failed to open log file %s", path), err)
	}

	l := NewLogger(file, level, format)
	l.file = &closer{file: file}
	return l, nil
}

// NopLogger returns a Logger that discards all output.
func NopLogger() *Logger {
	return NewLogger(io.Discard, LevelError, FormatText)
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger that adds the key-value pairs to every
// record.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...), file: l.file}
}

// WithManager tags records with the manager type.
func (l *Logger) WithManager(t model.ManagerType) *Logger {
	return l.With("manager", t.String())
}

// WithSession tags records with a session id.
func (l *Logger) WithSession(id string) *Logger {
	return l.With("session_id", id)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// Notify logs msg at INFO. It lets a Logger serve as a manager.Sink.
func (l *Logger) Notify(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Log(context.Background(), level, msg, args...)
}

// Close syncs and closes the log file opened by Open. It is a no-op for
// loggers writing elsewhere and safe to call more than once.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.file.mu.Lock()
	defer l.file.mu.Unlock()

	if l.file.file == nil {
		return nil
	}
	if err := l.file.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := l.file.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	l.file.file = nil
	return nil
}

var _ manager.Sink = (*Logger)(nil)
