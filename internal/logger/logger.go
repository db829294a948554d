package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is the structured logging surface used across taskflow. Arguments
// after msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	root    Logger
	handler slog.Handler
)

func init() {
	level.Set(LevelInfo)
	SetOutput(os.Stderr, false)
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...interface{}) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...interface{})  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...interface{})  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...interface{}) { s.l.Error(msg, args...) }

func (s *slogLogger) WithField(key string, value interface{}) Logger {
	return &slogLogger{l: s.l.With(key, value)}
}

func (s *slogLogger) WithFields(fields map[string]interface{}) Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &slogLogger{l: s.l.With(args...)}
}

// New wraps an existing slog.Logger.
func New(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

// SetOutput replaces the process-wide handler. JSON output is used by the
// worker when running under a supervisor.
func SetOutput(w io.Writer, json bool) {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: level}
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	root = &slogLogger{l: slog.New(handler)}
}

func SetLevel(l Level) {
	level.Set(l)
}

// ParseLevel accepts debug, info, warn/warning and error; anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

func WithField(key string, value interface{}) Logger {
	return Default().WithField(key, value)
}

func WithFields(fields map[string]interface{}) Logger {
	return Default().WithFields(fields)
}

// Nop discards everything. Tests use it to keep output quiet.
func Nop() Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
