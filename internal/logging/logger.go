// Package logging wraps zerolog behind the small structured-logging
// surface the rest of the service uses: leveled messages plus key-value
// fields, with a component tag per subsystem.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // "stdout", "stderr", or file path
	Component  string `json:"component"`
	JSONFormat bool   `json:"json_format"` // JSON output; console format otherwise
}

// Logger is a structured logger scoped to a component.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.Mutex
)

// ParseLevel converts a level string to a zerolog level, defaulting to
// info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger with the given configuration.
func New(cfg *Config) *Logger {
	var output io.Writer = os.Stdout
	switch cfg.Output {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	default:
		if file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			output = file
		}
	}

	if !cfg.JSONFormat {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	if cfg.Component != "" {
		zl = zl.With().Str("component", cfg.Component).Logger()
	}

	return &Logger{zl: zl}
}

// Default returns the process-wide logger.
func Default() *Logger {
	once.Do(func() {
		if defaultLogger == nil {
			defaultLogger = New(&Config{Level: "INFO", Output: "stdout", Component: "app", JSONFormat: true})
		}
	})
	mu.Lock()
	defer mu.Unlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// WithComponent returns a logger tagged with the given component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// WithField returns a logger carrying an extra field on every entry.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithError returns a logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

func emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

// Debug logs at debug level; kv are alternating key-value pairs.
func (l *Logger) Debug(msg string, kv ...interface{}) { emit(l.zl.Debug(), msg, kv) }

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...interface{}) { emit(l.zl.Info(), msg, kv) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...interface{}) { emit(l.zl.Warn(), msg, kv) }

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...interface{}) { emit(l.zl.Error(), msg, kv) }

// Fatal logs at fatal level and exits.
func (l *Logger) Fatal(msg string, kv ...interface{}) { emit(l.zl.Fatal(), msg, kv) }

// Package-level helpers on the default logger.

func Debug(msg string, kv ...interface{}) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { Default().Error(msg, kv...) }

// WithComponent returns a component-tagged logger off the default.
func WithComponent(component string) *Logger {
	return Default().WithComponent(component)
}
