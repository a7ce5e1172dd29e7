package log

import (
	"log/slog"

	"github.com/felixgeelhaar/rigup/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output.Writer(), opts)
	case FormatText:
		handler = slog.NewTextHandler(config.Output.Writer(), opts)
	default:
		handler = slog.NewTextHandler(config.Output.Writer(), opts)
	}

	return &Logger{
		slog:   slog.New(handler),
		config: config,
	}
}

// Default creates a logger with default configuration
func Default() *Logger {
	return New(DefaultConfig())
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// WithError adds error details to the logger.
// If the error is a rigup Error, it adds error_code and suggestions.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	if rigErr, ok := err.(*errors.Error); ok {
		args := []any{
			"error", rigErr.Message,
			"error_code", string(rigErr.Code),
		}

		if len(rigErr.Suggestions) > 0 {
			args = append(args, "suggestions", rigErr.Suggestions)
		}

		if rigErr.Cause != nil {
			args = append(args, "cause", rigErr.Cause.Error())
		}

		return l.With(args...)
	}

	return l.With("error", err.Error())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// LogError logs a rigup Error with full details
func (l *Logger) LogError(err error) {
	if err == nil {
		return
	}

	if rigErr, ok := err.(*errors.Error); ok {
		args := []any{
			"error_code", string(rigErr.Code),
			"error_message", rigErr.Message,
		}

		if len(rigErr.Suggestions) > 0 {
			args = append(args, "suggestions", rigErr.Suggestions)
		}

		if rigErr.Cause != nil {
			args = append(args, "cause", rigErr.Cause.Error())
		}

		l.Error("operation failed", args...)
	} else {
		l.Error("operation failed", "error", err.Error())
	}
}
