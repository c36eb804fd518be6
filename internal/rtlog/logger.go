// Package rtlog provides structured logging for the runtime, wrapping
// logrus the way the host service layer does for its own components.
package rtlog

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vmrealm/agentrt/internal/classifier"
)

// Logger wraps a logrus.Logger with runtime-scoped fields.
type Logger struct {
	*logrus.Logger
	realm string
}

// Config controls format/level/output the way host entrypoints do.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New creates a Logger for the given realm name.
func New(realm string, cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	return &Logger{Logger: l, realm: realm}
}

// NewDefault returns a Logger with sane defaults, analogous to
// logger.NewDefault in the ambient logging package this is grounded on.
func NewDefault(realm string) *Logger {
	return New(realm, Config{Level: "info", Format: "text"})
}

// WithProcess returns a log entry scoped to a realm/vm/process triple,
// the fields every Scheduler dispatch and privilege check logs under.
func (l *Logger) WithProcess(vm, process string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"realm":   l.realm,
		"vm":      vm,
		"process": process,
	})
}

// WithMessage adds a message_id field on top of WithProcess.
func (l *Logger) WithMessage(vm, process string, messageID uint64) *logrus.Entry {
	return l.WithProcess(vm, process).WithField("message_id", messageID)
}

// Trace emits a trace-level line gated by a Classifier filter: if filter
// is non-nil and none of labels intersect it, the line is suppressed.
// This mirrors the original source's Debug::Trace/FilterTrace split
// between "always collected" and "currently interesting" trace streams.
func (l *Logger) Trace(filter *classifier.Set, labels *classifier.Set, format string, args ...any) {
	if filter != nil && labels != nil && !filter.Intersects(labels) {
		return
	}
	l.Debugf(format, args...)
}
