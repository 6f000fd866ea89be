package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry carries metric fields (duration_ms, count, size, status) for a single log line.
// The context supplies the logger and its tracing fields.
//
//	logger.With(logger.Fields{logger.FieldCount: n}).WithElapsed(start).Info(ctx, "Run finished")
type Entry struct {
	fields Fields
}

// With creates a new Entry with the given metric fields.
func With(fields Fields) *Entry {
	return (&Entry{}).With(fields)
}

// With returns a copy of e with fields merged in.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{fields: merged}
}

// WithElapsed sets duration_ms to the time since start.
func (e *Entry) WithElapsed(start time.Time) *Entry {
	return e.With(Fields{FieldDurationMs: time.Since(start).Milliseconds()})
}

// WithCount sets the count field.
func (e *Entry) WithCount(count int) *Entry {
	return e.With(Fields{FieldCount: count})
}

func (e *Entry) log(ctx context.Context, level logrus.Level, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Logf(level, format, args...)
}

// Debug logs at Debug level with metric fields.
func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.log(ctx, logrus.DebugLevel, format, args...)
}

// Info logs at Info level with metric fields.
func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.log(ctx, logrus.InfoLevel, format, args...)
}

// Warn logs at Warn level with metric fields.
func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.log(ctx, logrus.WarnLevel, format, args...)
}

// Error logs at Error level with metric fields.
func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.log(ctx, logrus.ErrorLevel, format, args...)
}
