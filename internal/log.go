package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// slogLevelTrace sits below slog's Debug level.
const slogLevelTrace = slog.Level(-8)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelTrace:
		return slogLevelTrace
	}
	return slog.LevelInfo
}

// ParseLogLevel maps ERROR/WARN/INFO/DEBUG/TRACE to a level, defaulting to INFO.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	}
	return LogLevelInfo
}

// Logger provides leveled printf-style logging on top of slog handlers.
type Logger struct {
	level  LogLevel
	logger *slog.Logger
}

// NewLogger creates a logger with the specified level. With no handlers it
// writes text to stderr; with several, records fan out to all of them.
func NewLogger(level LogLevel, handlers ...slog.Handler) *Logger {
	if len(handlers) == 0 {
		handlers = []slog.Handler{TextHandler(os.Stderr)}
	}
	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = slogmulti.Fanout(handlers...)
	}
	return &Logger{level: level, logger: slog.New(h)}
}

// TextHandler writes human-readable records to w
func TextHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevelTrace})
}

// JSONHandler writes one JSON object per record to w
func JSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevelTrace})
}

// NewDefaultLogger creates a logger based on the LOG_LEVEL environment
// variable. When LOG_FILE is set, records are also appended there as JSON.
func NewDefaultLogger() *Logger {
	level := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	handlers := []slog.Handler{TextHandler(os.Stderr)}
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			handlers = append(handlers, JSONHandler(f))
		} else {
			fmt.Fprintf(os.Stderr, "[WARN] cannot open LOG_FILE %s: %v\n", path, err)
		}
	}
	return NewLogger(level, handlers...)
}

// With returns a logger tagged with a component attribute
func (l *Logger) With(component string) *Logger {
	return &Logger{level: l.level, logger: l.logger.With(slog.String("component", component))}
}

// Slog exposes the underlying structured logger
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

func (l *Logger) log(level LogLevel, format string, args []interface{}) {
	if l.level < level {
		return
	}
	l.logger.Log(context.Background(), level.slogLevel(), fmt.Sprintf(format, args...))
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogLevelWarn, format, args)
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args)
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args)
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LogLevelTrace, format, args)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()

// Discard drops everything; handy in tests.
func Discard() *Logger {
	return NewLogger(LogLevelError, slog.NewTextHandler(io.Discard, nil))
}
