// Package logger provides structured logging for slkv
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with slkv-specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	// Set global log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	// Create logger
	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "slkv").
		Logger()

	// Add caller information if requested
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string) *zerolog.Event {
	return l.zlog.Fatal().Str("msg", msg)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// DbLogger returns a logger scoped to a single environment's storage
// operations.
func (l *Logger) DbLogger(component string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", component).
			Logger(),
	}
}

// LogEnvOpen logs a successful Env.Open, reporting whether the backing
// file was freshly initialized.
func (l *Logger) LogEnvOpen(path string, capacity uint64, fresh bool) {
	l.zlog.Info().
		Str("event", "env_open").
		Str("path", path).
		Uint64("capacity", capacity).
		Bool("fresh", fresh).
		Msg("environment opened")
}

// LogCommit logs a write transaction's commit.
func (l *Logger) LogCommit(duration time.Duration, dirtyPages, freedPages int) {
	l.zlog.Debug().
		Str("event", "commit").
		Dur("duration_ms", duration).
		Int("dirty_pages", dirtyPages).
		Int("freed_pages", freedPages).
		Msg("write transaction committed")
}

// LogAbort logs a write transaction that was dropped without committing.
func (l *Logger) LogAbort(dirtyPages int) {
	l.zlog.Debug().
		Str("event", "abort").
		Int("dirty_pages", dirtyPages).
		Msg("write transaction aborted")
}

// LogSplit logs a page split during put().
func (l *Logger) LogSplit(level int) {
	l.zlog.Debug().
		Str("event", "split").
		Int("level", level).
		Msg("page split")
}

// LogFork logs a Fork() call creating a new snapshot root.
func (l *Logger) LogFork(root uint64) {
	l.zlog.Info().
		Str("event", "fork").
		Uint64("root", root).
		Msg("tree forked")
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Initialize with defaults if not set
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}
