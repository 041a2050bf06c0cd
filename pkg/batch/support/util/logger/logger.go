// Package logger provides the process-wide logging facade.
// Call sites use the printf-style helpers; output is produced by a zerolog logger
// that can be reconfigured once the application configuration is loaded.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for progress and informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for errors that terminate the process.
	LevelFatal
)

// Options controls how the backing zerolog logger renders events.
type Options struct {
	Level  string    // DEBUG, INFO, WARN, ERROR or FATAL.
	Format string    // "console" (default) or "json".
	Output io.Writer // Defaults to os.Stderr.
}

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	base     = newZerolog(Options{})
)

func newZerolog(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	if strings.EqualFold(opts.Format, "json") {
		return zerolog.New(out).With().Timestamp().Str("service", "qplan").Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// ParseLevel converts a level name into a LogLevel.
// The boolean result is false when the name is not recognised.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel sets the global log level.
// Unknown values fall back to INFO and emit a warning.
func SetLogLevel(level string) {
	parsed, ok := ParseLevel(level)
	mu.Lock()
	logLevel = parsed
	base = base.Level(parsed.zerologLevel())
	mu.Unlock()
	if !ok {
		Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// Configure replaces the backing logger using opts.
func Configure(opts Options) {
	parsed, ok := ParseLevel(opts.Level)
	l := newZerolog(opts).Level(parsed.zerologLevel())
	mu.Lock()
	logLevel = parsed
	base = l
	mu.Unlock()
	if !ok && opts.Level != "" {
		Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", opts.Level)
	}
}

// CurrentLevel returns the active log level.
func CurrentLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// Zerolog returns a copy of the backing logger for callers that want structured fields.
func Zerolog() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func emit(level LogLevel, format string, v ...interface{}) {
	mu.RLock()
	l := base
	enabled := logLevel <= level
	mu.RUnlock()
	if !enabled {
		return
	}
	l.WithLevel(level.zerologLevel()).Msg(fmt.Sprintf(format, v...))
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	emit(LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	emit(LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	emit(LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	emit(LevelError, format, v...)
}

// Fatalf formats and outputs a FATAL level log message, then terminates the program with exit code 1.
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	l := base
	mu.RUnlock()
	l.Fatal().Msg(fmt.Sprintf(format, v...))
}
