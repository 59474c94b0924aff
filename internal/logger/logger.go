// Package logger configures the process-wide logrus logger.
// Interactive runs log human-readable text to stderr; when a log file is
// configured, entries are written as JSON through a rotating lumberjack
// writer instead.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level  string // trace|debug|info|warn|error
	File   string // empty = stderr
	MaxAge int    // days to keep rotated files
	Output io.Writer
}

// New builds a logger from opts.
func New(opts Options) (*logrus.Logger, error) {
	l := logrus.New()

	level := strings.ToLower(strings.TrimSpace(opts.Level))
	if level == "" {
		level = "warn"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", opts.Level)
	}
	l.SetLevel(lvl)

	switch {
	case opts.Output != nil:
		l.SetOutput(opts.Output)
		l.SetFormatter(textFormatter())
	case opts.File != "":
		maxAge := opts.MaxAge
		if maxAge <= 0 {
			maxAge = 14
		}
		l.SetOutput(&lumberjack.Logger{
			Filename: opts.File,
			MaxAge:   maxAge,
			MaxSize:  20,
			Compress: true,
		})
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	default:
		l.SetOutput(os.Stderr)
		l.SetFormatter(textFormatter())
	}
	return l, nil
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}
}

// Discard returns a logger that drops everything. Used by tests and by
// library callers that pass no logger.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Component returns an entry tagged with the component name.
func Component(l logrus.FieldLogger, name string) *logrus.Entry {
	return orDiscard(l).WithField("component", name)
}

// WithLoadID tags an entry with a fresh load identifier and returns both.
func WithLoadID(l logrus.FieldLogger) (*logrus.Entry, string) {
	id := uuid.NewString()
	return orDiscard(l).WithField("load_id", id), id
}

// orDiscard also catches a nil *logrus.Logger or *logrus.Entry held in a
// non-nil interface.
func orDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	switch v := l.(type) {
	case nil:
		return Discard()
	case *logrus.Logger:
		if v == nil {
			return Discard()
		}
	case *logrus.Entry:
		if v == nil {
			return Discard()
		}
	}
	return l
}
