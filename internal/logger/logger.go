package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultServiceName = "nlsql-console"
	timestampFormat    = "2006-01-02T15:04:05.000Z07:00"
)

// rotating file writers opened by New, closed by Sync
var (
	fileWriters   []io.Closer
	fileWritersMu sync.Mutex
)

// Logger wraps logrus.Entry to provide structured logging with context support.
type Logger struct {
	*logrus.Entry
}

// Config holds logger configuration. Zero values fall back to DefaultConfig.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // when set, replaces stdout and file output
	ServiceName string    // value of the "service" field
	Environment string    // local writes to stdout only
	File        FileConfig
}

// FileConfig configures the rotating log file used outside the local environment.
type FileConfig struct {
	Path       string
	Only       bool // skip stdout
	MaxSize    int  // MB before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns JSON logging at info level to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		ServiceName: defaultServiceName,
		Environment: "local",
	}
}

// New creates a Logger from cfg.
// Parameters:
//   - cfg: logger configuration; nil uses DefaultConfig.
//
// Returns:
//   - *Logger: logger carrying the service field.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	base := logrus.New()
	base.SetLevel(parseLevel(cfg.Level))
	base.SetReportCaller(true)
	base.SetFormatter(newFormatter(cfg.Format))
	base.SetOutput(newOutput(cfg))

	service := cfg.ServiceName
	if service == "" {
		service = defaultServiceName
	}
	return &Logger{Entry: base.WithField("service", service)}
}

// NewDefault creates a Logger configured from LOG_* environment variables.
//
// Usage:
//
//	func main() {
//	    logger.SetDefaultLogger(logger.NewDefault())
//	    defer logger.Sync()
//	    // ...
//	}
func NewDefault() *Logger {
	return New(ConfigFromEnv())
}

func parseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func newFormatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: callerPrettyfier,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: callerPrettyfier,
	}
}

// newOutput picks stdout, a rotating file, or both.
func newOutput(cfg *Config) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}

	local := cfg.Environment == "" || cfg.Environment == "local"
	var writers []io.Writer
	if local || !cfg.File.Only {
		writers = append(writers, os.Stdout)
	}
	if !local && cfg.File.Path != "" {
		fw := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		writers = append(writers, fw)

		fileWritersMu.Lock()
		fileWriters = append(fileWriters, fw)
		fileWritersMu.Unlock()
	}

	if len(writers) == 1 {
		return writers[0]
	}
	if len(writers) == 0 {
		return os.Stdout
	}
	return io.MultiWriter(writers...)
}

// Sync closes the rotating log files opened by New.
// Should be called before program exit so buffered lines reach disk.
func Sync() error {
	fileWritersMu.Lock()
	defer fileWritersMu.Unlock()

	var firstErr error
	for _, w := range fileWriters {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	fileWriters = nil
	return firstErr
}

// WithFields returns a new Logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a new Logger with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a new Logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

// callerPrettyfier reports "pkg.Func" and "file.go:line" instead of full paths.
func callerPrettyfier(frame *runtime.Frame) (function string, file string) {
	function = frame.Function
	if idx := strings.LastIndex(function, "/"); idx != -1 {
		function = function[idx+1:]
	}
	return function, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

// ============================================
// Context Log Functions
// ============================================

// CtxDebug logs a message at Debug level with context fields.
func CtxDebug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debugf(format, args...)
}

// CtxInfo logs a message at Info level with context fields.
func CtxInfo(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Infof(format, args...)
}

// CtxWarn logs a message at Warn level with context fields.
func CtxWarn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warnf(format, args...)
}

// CtxError logs a message at Error level with context fields.
func CtxError(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Errorf(format, args...)
}
