// Package logging provides the core's leveled logger: a thin wrapper
// over the standard library logger, since nothing in the dependency
// pack this module draws from pulls in a structured logging framework.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel parses "debug", "info", "warn", or "error" (case
// insensitive); an unrecognized value falls back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
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

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger is a minimal leveled logger. The zero value is not usable;
// construct one with New.
type Logger struct {
	min Level
	std *log.Logger
}

// New builds a Logger writing to w, filtering out messages below min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{min: min, std: log.New(w, "", log.LstdFlags)}
}

// NewFromFile opens path (creating/appending) and returns a Logger
// writing to it. An empty path logs to stderr instead.
func NewFromFile(path string, min Level) (*Logger, error) {
	if path == "" {
		return New(os.Stderr, min), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: opening log file: %w", err)
	}
	return New(f, min), nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.min {
		return
	}
	l.std.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }
