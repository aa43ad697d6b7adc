// Package logger wraps logrus with the package-level Info/Warn/Error/Debug
// call style used throughout the echoryn codebase (e.g.
// "[MCP] server %q: failed to connect: %v").
package logger

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var std = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// SetOutput redirects the package logger's output (tests use this to
// capture log lines).
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetLevel parses and applies a logrus level by name; invalid names are
// ignored and leave the current level in place.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	std.SetLevel(lvl)
}

// SetJSON forces (or relaxes) JSON-formatted output regardless of TTY
// detection, for daemon / non-interactive contexts.
func SetJSON(enabled bool) {
	if enabled {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func Debug(format string, args ...any) { std.Debugf(format, args...) }
func Info(format string, args ...any)  { std.Infof(format, args...) }
func Warn(format string, args ...any)  { std.Warnf(format, args...) }
func Error(format string, args ...any) { std.Errorf(format, args...) }

// WithField returns a logrus.Entry pre-populated with a single field, for
// call sites that want structured fields rather than a formatted string
// (e.g. request correlation ids in the Runtime).
func WithField(key string, value any) *logrus.Entry {
	return std.WithField(key, value)
}
