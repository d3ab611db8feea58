// Package synclog is the event sink for the mirroring daemon. Every file
// system mutation and every failure is reported through a Logger, which
// renders the events to the console and to a persistent log file.
package synclog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Event identifies the kind of a logged event. It's attached to each entry
// under the EventKey field.
type Event string

// The semantic events understood by the sink.
const (
	EventInfo             Event = "info"
	EventFileCreated      Event = "file-created"
	EventFileModified     Event = "file-modified"
	EventFileDeleted      Event = "file-deleted"
	EventDirectoryCreated Event = "directory-created"
	EventDirectoryDeleted Event = "directory-deleted"
	EventError            Event = "error"
)

// Field names used on every entry emitted by the Logger.
const (
	EventKey = "event"
	PathKey  = "path"
)

// Logger reports synchronization events. It is safe to share between
// components since the underlying logrus logger serializes writes.
type Logger struct {
	log logrus.FieldLogger
}

// New wraps `log` as an event sink.
func New(log logrus.FieldLogger) *Logger {
	return &Logger{log: log}
}

// Info logs a plain informational message.
func (l *Logger) Info(msg string) {
	l.log.WithField(EventKey, EventInfo).Info(msg)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// WithFields logs an informational message with extra fields.
func (l *Logger) WithFields(fields logrus.Fields) logrus.FieldLogger {
	return l.log.WithField(EventKey, EventInfo).WithFields(fields)
}

// Debugf logs at debug level. Debug entries are only shown in verbose mode.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log.WithField(EventKey, EventInfo).Debugf(format, args...)
}

// FileCreated reports that `path` was created by a copy.
func (l *Logger) FileCreated(path string) {
	l.mutation(EventFileCreated, path).Infof("File %s was created", path)
}

// FileModified reports that `path` was overwritten with new contents.
func (l *Logger) FileModified(path string) {
	l.mutation(EventFileModified, path).Infof("File %s was modified", path)
}

// FileDeleted reports that the file at `path` was removed.
func (l *Logger) FileDeleted(path string) {
	l.mutation(EventFileDeleted, path).Infof("File %s was deleted", path)
}

// DirectoryCreated reports that the directory at `path` was created.
func (l *Logger) DirectoryCreated(path string) {
	l.mutation(EventDirectoryCreated, path).Infof("Directory %s was created", path)
}

// DirectoryDeleted reports that the directory at `path`, and everything
// beneath it, was removed.
func (l *Logger) DirectoryDeleted(path string) {
	l.mutation(EventDirectoryDeleted, path).Infof("Directory %s was removed", path)
}

// Error reports a failure. `path` may be empty if the failure isn't tied to
// a single path.
func (l *Logger) Error(err error, path, msg string) {
	entry := l.log.WithField(EventKey, EventError)
	if path != "" {
		entry = entry.WithField(PathKey, path)
	}
	entry.WithError(err).Error(msg)
}

func (l *Logger) mutation(event Event, path string) logrus.FieldLogger {
	return l.log.WithFields(logrus.Fields{
		EventKey: event,
		PathKey:  path,
	})
}
