// Package log provides structured logging for go-affect.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Options configures the global logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// File, when set, mirrors log output into a rotating file.
	File string

	// MaxSizeMB is the rotation threshold for File (default 10).
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept (default 2).
	MaxBackups int
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	Setup(Options{Level: level, File: os.Getenv("LOG_FILE")})
}

// Setup initializes the global logger from options. Only the first call has effect.
func Setup(o Options) {
	once.Do(func() {
		logger = New(o, os.Stdout)
		slog.SetDefault(logger)
	})
}

// New builds a logger writing to w (and to the rotating file, if configured)
// without touching the global instance.
func New(o Options, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(o.Level),
	}

	if o.File != "" {
		size, backups := o.MaxSizeMB, o.MaxBackups
		if size <= 0 {
			size = 10
		}
		if backups <= 0 {
			backups = 2
		}
		w = io.MultiWriter(w, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    size, // MB
			MaxBackups: backups,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	// Use JSON in production, text in development
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// L returns the global logger instance.
// The first call without a prior Init sets up an info-level logger.
func L() *slog.Logger {
	once.Do(func() {
		logger = New(Options{Level: "info", File: os.Getenv("LOG_FILE")}, os.Stdout)
		slog.SetDefault(logger)
	})
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
