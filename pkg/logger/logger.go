// Package logger provides a small leveled logger shared by all packages.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a config string (case-insensitive) to a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// sink is shared between a logger and the children created by With,
// so SetLevel/SetOutput on the root affects every component.
type sink struct {
	mu     sync.Mutex
	level  LogLevel
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// Logger writes leveled printf-style messages with an optional component prefix
type Logger struct {
	sink   *sink
	prefix string
}

var std = New(os.Stdout, os.Stderr, INFO, "")

// New creates a new logger instance
func New(out, errOut io.Writer, level LogLevel, prefix string) *Logger {
	return &Logger{
		sink: &sink{
			level:  level,
			out:    out,
			errOut: errOut,
			now:    time.Now,
		},
		prefix: prefix,
	}
}

// Default returns the process-wide logger
func Default() *Logger {
	return std
}

// With returns a child logger tagged with a component name
func (l *Logger) With(component string) *Logger {
	prefix := component
	if l.prefix != "" {
		prefix = l.prefix + "." + component
	}
	return &Logger{sink: l.sink, prefix: prefix}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// Level returns the current minimum level
func (l *Logger) Level() LogLevel {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

// SetOutput redirects output. A nil errOut sends errors to out as well.
func (l *Logger) SetOutput(out, errOut io.Writer) {
	if errOut == nil {
		errOut = out
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.out = out
	l.sink.errOut = errOut
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	out := s.out
	if level >= ERROR {
		out = s.errOut
	}
	if out == nil {
		return
	}

	var b strings.Builder
	b.WriteString(s.now().Format("2006-01-02 15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	if l.prefix != "" {
		b.WriteString(l.prefix)
		b.WriteString(": ")
	}
	b.WriteString(fmt.Sprintf(format, args...))
	b.WriteByte('\n')

	_, _ = io.WriteString(out, b.String())
}

// OpenFile opens (or creates) a log file in append mode, creating parent dirs.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Package-level convenience functions using the default logger

// SetLevel sets the minimum log level for the default logger
func SetLevel(level LogLevel) {
	std.SetLevel(level)
}

// SetOutput redirects the default logger
func SetOutput(out, errOut io.Writer) {
	std.SetOutput(out, errOut)
}

// Debug logs a debug message using the default logger
func Debug(format string, args ...interface{}) {
	std.Debug(format, args...)
}

// Info logs an info message using the default logger
func Info(format string, args ...interface{}) {
	std.Info(format, args...)
}

// Warn logs a warning message using the default logger
func Warn(format string, args ...interface{}) {
	std.Warn(format, args...)
}

// Error logs an error message using the default logger
func Error(format string, args ...interface{}) {
	std.Error(format, args...)
}
