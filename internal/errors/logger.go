package errors

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
)

// Logger is a JSON slog logger that expands AppErrors into structured fields.
type Logger struct {
	logger *slog.Logger
}

// NewLogger logs to stderr so command output on stdout stays machine readable.
func NewLogger(level slog.Level) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a JSON logger writing to w.
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{logger: slog.New(slog.DiscardHandler)}
}

// New creates a stderr logger for a config level name.
func New(level string) (*Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(slogLevel), nil
}

// ParseLevel accepts debug, info, warn or error in any case.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, fmt.Errorf("invalid log level: empty")
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
	return l, nil
}

// LogError logs err at error level. AppErrors are expanded into an "error"
// group holding type, code, message, cause and their context fields.
func (l *Logger) LogError(err error, message string, args ...any) {
	appErr, ok := As(err)
	if !ok {
		errText := "<nil>"
		if err != nil {
			errText = err.Error()
		}
		l.logger.Error(message, append([]any{"error", errText}, args...)...)
		return
	}

	fields := []any{
		slog.String("type", string(appErr.Type)),
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
	}
	if appErr.Cause != nil {
		fields = append(fields, slog.String("cause", appErr.Cause.Error()))
	}
	for _, key := range slices.Sorted(maps.Keys(appErr.Context)) {
		fields = append(fields, slog.Any(key, appErr.Context[key]))
	}
	l.logger.Error(message, append([]any{slog.Group("error", fields...)}, args...)...)
}

func (l *Logger) Info(message string, args ...any)  { l.logger.Info(message, args...) }
func (l *Logger) Debug(message string, args ...any) { l.logger.Debug(message, args...) }
func (l *Logger) Warn(message string, args ...any)  { l.logger.Warn(message, args...) }
func (l *Logger) Error(message string, args ...any) { l.logger.Error(message, args...) }

// With returns a logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}
