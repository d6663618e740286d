// Package logging provides structured, leveled logging for faultlens.
//
// Loggers are named after the component that owns them and are cheap to
// create:
//
//	logger := logging.GetLogger("workflow.parser")
//	logger.Info("parsed %d nodes", n)
//	logger.WarnWithFields("gate condition not evaluable",
//	    logging.Field("gate", gate.ID),
//	    logging.Field("condition", gate.Condition),
//	)
//
// Levels can be overridden per component, with "prefix.*" wildcards:
//
//	logging.Initialize("info", map[string]string{"workflow.*": "debug"})
//
// Logger values are immutable; WithField and WithFields return copies, so a
// logger can be shared between goroutines.
//
// Tests can pin timestamps with LOG_TIMESTAMP and redirect output with
// SetOutput.
package logging

import (
	"context"
	"os"
	"sync"
)

var (
	globalLevel = INFO
	globalMu    sync.RWMutex
	// exitFunc is replaced in tests so Fatal does not terminate the test binary.
	exitFunc = os.Exit
)

// Initialize sets the default level and optional per-package overrides.
// Unknown default levels fall back to INFO.
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalMu.Lock()
	globalLevel = level
	globalMu.Unlock()

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		return SetPackageLogLevels(packageLevels[0])
	}
	return nil
}

// GetLogger returns a logger for the named component.
func GetLogger(name string) *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return &Logger{
		level:  globalLevel,
		name:   name,
		fields: map[string]interface{}{},
	}
}

func (l *Logger) enabled(level LogLevel) bool {
	if pkgLevel := GetPackageLogLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a formatted debug message
func (l *Logger) Debug(msg string, args ...interface{}) { l.logf(DEBUG, msg, args...) }

// Info logs a formatted info message
func (l *Logger) Info(msg string, args ...interface{}) { l.logf(INFO, msg, args...) }

// Warn logs a formatted warning
func (l *Logger) Warn(msg string, args ...interface{}) { l.logf(WARN, msg, args...) }

// Error logs a formatted error message
func (l *Logger) Error(msg string, args ...interface{}) { l.logf(ERROR, msg, args...) }

// Fatal logs and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.enabled(FATAL) {
		l.logf(FATAL, msg, args...)
		exitFunc(1)
	}
}

// ErrorWithErr logs msg followed by err.
func (l *Logger) ErrorWithErr(msg string, err error) {
	l.logWithFields(ERROR, msg, Field("error", err))
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	l.logWithFields(DEBUG, msg, fields...)
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	l.logWithFields(INFO, msg, fields...)
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	l.logWithFields(WARN, msg, fields...)
}

// ErrorWithFields logs an error with structured fields
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	l.logWithFields(ERROR, msg, fields...)
}

// WithField returns a copy of the logger carrying key=value on every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Field(key, value))
}

// WithFields returns a copy of the logger carrying the given fields.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	next := l.clone()
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

// WithContext attaches ctx so trace_id and span_id values are logged.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	next := l.clone()
	next.ctx = ctx
	return next
}

func (l *Logger) clone() *Logger {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{level: l.level, name: l.name, fields: fields, ctx: l.ctx}
}

// mergeFields layers context fields, persistent fields and call fields;
// later layers win.
func (l *Logger) mergeFields(fields []LogField) map[string]interface{} {
	ctxFields := extractContextFields(l.ctx)
	if len(ctxFields) == 0 && len(l.fields) == 0 && len(fields) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(ctxFields)+len(l.fields)+len(fields))
	for k, v := range ctxFields {
		merged[k] = v
	}
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return merged
}
