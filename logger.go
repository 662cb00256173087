package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	tls_client "github.com/bogdanfinn/tls-client"
)

// Logger is the leveled logger threaded through every component.
// Its method set matches tls_client.Logger so one value serves both.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var _ tls_client.Logger = (Logger)(nil)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel accepts DEBUG, INFO, WARNING (or WARN) and ERROR, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

type levelLogger struct {
	logger *log.Logger
	min    Level
}

// NewLogger writes lines at or above min to w with the standard date/time prefix.
func NewLogger(w io.Writer, min Level) Logger {
	return &levelLogger{logger: log.New(w, "", log.LstdFlags), min: min}
}

func (l *levelLogger) logf(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	l.logger.Printf(level.String()+": "+format, args...)
}

func (l *levelLogger) Debug(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *levelLogger) Info(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *levelLogger) Warn(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *levelLogger) Error(format string, args ...any) { l.logf(LevelError, format, args...) }

// attemptLogger wraps a logger with a login attempt ID prefix.
type attemptLogger struct {
	id   string
	base Logger
}

func (a *attemptLogger) prefix(args []any) []any {
	return append([]any{a.id}, args...)
}

func (a *attemptLogger) Debug(format string, args ...any) {
	a.base.Debug("[%s] "+format, a.prefix(args)...)
}

func (a *attemptLogger) Info(format string, args ...any) {
	a.base.Info("[%s] "+format, a.prefix(args)...)
}

func (a *attemptLogger) Warn(format string, args ...any) {
	a.base.Warn("[%s] "+format, a.prefix(args)...)
}

func (a *attemptLogger) Error(format string, args ...any) {
	a.base.Error("[%s] "+format, a.prefix(args)...)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
