// Package logging provides a small leveled logger used across the service.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Level controls the minimum severity that gets emitted.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// Logger wraps logrus with a fields-as-options call style.
type Logger struct {
	l *logrus.Logger
}

// Field attaches a key/value pair to a single log entry.
type Field func(logrus.Fields)

// WithField returns a Field for a single key/value pair.
func WithField(key string, value interface{}) Field {
	return func(f logrus.Fields) {
		f[key] = value
	}
}

// WithFields returns a Field carrying multiple key/value pairs.
func WithFields(fields map[string]interface{}) Field {
	return func(f logrus.Fields) {
		for k, v := range fields {
			f[k] = v
		}
	}
}

// New creates a logger writing structured text to stderr at the given level.
func New(level Level) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch level {
	case LevelTrace:
		l.SetLevel(logrus.TraceLevel)
	case LevelDebug:
		l.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		l.SetLevel(logrus.WarnLevel)
	case LevelError:
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	return &Logger{l: l}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) entry(fields []Field) *logrus.Entry {
	f := logrus.Fields{}
	for _, apply := range fields {
		apply(f)
	}
	return l.l.WithFields(f)
}

func (l *Logger) Trace(msg string, fields ...Field) {
	l.entry(fields).Trace(msg)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.entry(fields).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.entry(fields).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.entry(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.entry(fields).Error(msg)
}
