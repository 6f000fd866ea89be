package logger

import (
	"context"
	"sync"
)

type contextKey struct{}

var loggerKey = contextKey{}

var (
	defaultLogger   = New(nil)
	defaultLoggerMu sync.RWMutex
)

// GetDefault returns the logger used when a context carries none.
func GetDefault() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the default logger. A nil logger is ignored.
func SetDefaultLogger(l *Logger) {
	if l == nil {
		return
	}
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
}

// WithContext returns a new context with the logger attached.
// Parameters:
//   - ctx: existing context to wrap.
//
// Returns:
//   - context.Context: context containing the logger.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Lookup returns the logger attached to ctx, if any.
func Lookup(ctx context.Context) (*Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(loggerKey).(*Logger)
	return l, ok
}

// FromContext extracts the logger from context. It never returns nil.
func FromContext(ctx context.Context) *Logger {
	if l, ok := Lookup(ctx); ok {
		return l
	}
	return GetDefault()
}

// WithField returns a context whose logger carries one more field.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return FromContext(ctx).WithField(key, value).WithContext(ctx)
}

// WithFields returns a context whose logger carries the given fields.
func WithFields(ctx context.Context, fields Fields) context.Context {
	return FromContext(ctx).WithFields(fields).WithContext(ctx)
}

// SetRunID tags the context with an upload run id.
func SetRunID(ctx context.Context, id string) context.Context {
	return WithField(ctx, FieldRunID, id)
}

// SetStage tags the context with a pipeline stage.
func SetStage(ctx context.Context, stage string) context.Context {
	return WithField(ctx, FieldStage, stage)
}

// GetFieldString returns a string field of the context's logger, or "".
func GetFieldString(ctx context.Context, key string) string {
	s, _ := FromContext(ctx).Data[key].(string)
	return s
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	return GetFieldString(ctx, FieldRequestID)
}

// GetRunID extracts the upload run ID from context.
func GetRunID(ctx context.Context) string {
	return GetFieldString(ctx, FieldRunID)
}

// GetFields returns a copy of every field on the context's logger.
func GetFields(ctx context.Context) Fields {
	data := FromContext(ctx).Data
	fields := make(Fields, len(data))
	for k, v := range data {
		fields[k] = v
	}
	return fields
}
