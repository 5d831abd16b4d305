// Package logging provides structured logging for the Oba LDAP server.
package logging

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the logging level.
type Level int

const (
	// LevelDebug is the most verbose level.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string into a Level.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Format represents the log output format.
type Format int

const (
	// FormatText outputs logs in human-readable text format.
	FormatText Format = iota
	// FormatJSON outputs logs in JSON format.
	FormatJSON
)

// ParseFormat parses a string into a Format.
func ParseFormat(s string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatText
	}
}

// Logger is the interface for structured logging.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})
	// Info logs an info message with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})
	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})
	// Error logs an error message with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
	// WithRequestID returns a new logger with the given request ID.
	WithRequestID(requestID string) Logger
	// WithFields returns a new logger with the given fields.
	WithFields(keysAndValues ...interface{}) Logger
	// WithSource returns a new logger tagged with the given subsystem name.
	WithSource(source string) Logger
	// SetLevel changes the minimum level logged by this logger and every
	// logger derived from it via WithRequestID/WithFields/WithSource.
	SetLevel(level Level)
	// SetFormat changes the output encoding used by this logger and every
	// logger derived from it.
	SetFormat(format Format)
	// SetStore attaches a LogStore that receives a copy of every entry
	// logged through this logger, for later querying via the REST API.
	SetStore(store *LogStore)
	// CloseStore closes and flushes the attached LogStore, if any.
	CloseStore()
}

// loggerCore holds the mutable zap plumbing shared by a logger and every
// clone derived from it, so SetLevel/SetFormat/SetStore take effect across
// the whole family instead of just the receiver.
type loggerCore struct {
	mu     sync.Mutex
	level  Level
	format Format
	writer zapcore.WriteSyncer
	base   atomic.Pointer[zap.SugaredLogger]
	store  atomic.Pointer[LogStore]
}

func newLoggerCore(cfg Config, w zapcore.WriteSyncer) *loggerCore {
	c := &loggerCore{
		level:  ParseLevel(cfg.Level),
		format: ParseFormat(cfg.Format),
		writer: w,
	}
	c.rebuild()
	return c
}

func (c *loggerCore) rebuild() {
	core := zapcore.NewCore(buildEncoder(c.format), c.writer, c.level.zapLevel())
	c.base.Store(zap.New(core).Sugar())
}

func (c *loggerCore) setLevel(l Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = l
	c.rebuild()
}

func (c *loggerCore) setFormat(f Format) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = f
	c.rebuild()
}

func (c *loggerCore) writeToStore(level, msg string, fields []interface{}) {
	store := c.store.Load()
	if store == nil {
		return
	}
	var source, requestID string
	extra := make(map[string]interface{})
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch key {
		case "source":
			source, _ = fields[i+1].(string)
		case "request_id":
			requestID, _ = fields[i+1].(string)
		default:
			extra[key] = fields[i+1]
		}
	}
	store.Write(level, msg, source, "", requestID, extra)
}

// logger is the default implementation of Logger, backed by zap.
type logger struct {
	core   *loggerCore
	fields []interface{}
}

// Config holds the logger configuration.
type Config struct {
	Level  string
	Format string
	Output string
}

func openOutput(path string) zapcore.WriteSyncer {
	switch path {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout)
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return zapcore.AddSync(os.Stdout)
		}
		return zapcore.AddSync(f)
	}
}

func buildEncoder(format Format) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(encCfg)
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

// New creates a new Logger with the given configuration.
func New(cfg Config) Logger {
	return newWithWriter(cfg, openOutput(cfg.Output))
}

// newWithWriter builds a Logger writing to an explicit sink, letting
// tests capture output without touching stdout/stderr/disk.
func newWithWriter(cfg Config, w zapcore.WriteSyncer) Logger {
	return &logger{core: newLoggerCore(cfg, w)}
}

// newTestLogger is a logging-package-internal helper for tests that
// need to inspect raw log output.
func newTestLogger(cfg Config, w io.Writer) Logger {
	return newWithWriter(cfg, zapcore.AddSync(w))
}

// NewDefault creates a new Logger with default settings.
func NewDefault() Logger {
	return New(Config{Level: "info", Format: "text", Output: "stdout"})
}

// NewNop creates a no-op logger that discards all output.
func NewNop() Logger {
	return &nopLogger{}
}

func (l *logger) sugared() *zap.SugaredLogger {
	base := l.core.base.Load()
	if len(l.fields) == 0 {
		return base
	}
	return base.With(l.fields...)
}

func (l *logger) clone(extra ...interface{}) *logger {
	next := make([]interface{}, 0, len(l.fields)+len(extra))
	next = append(next, l.fields...)
	next = append(next, extra...)
	return &logger{core: l.core, fields: next}
}

// Debug logs a debug message.
func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugared().Debugw(msg, keysAndValues...)
	l.core.writeToStore("debug", msg, append(l.fields, keysAndValues...))
}

// Info logs an info message.
func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugared().Infow(msg, keysAndValues...)
	l.core.writeToStore("info", msg, append(l.fields, keysAndValues...))
}

// Warn logs a warning message.
func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugared().Warnw(msg, keysAndValues...)
	l.core.writeToStore("warn", msg, append(l.fields, keysAndValues...))
}

// Error logs an error message.
func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugared().Errorw(msg, keysAndValues...)
	l.core.writeToStore("error", msg, append(l.fields, keysAndValues...))
}

// WithRequestID returns a new logger with the given request ID.
func (l *logger) WithRequestID(requestID string) Logger {
	return l.clone("request_id", requestID)
}

// WithFields returns a new logger with the given fields.
func (l *logger) WithFields(keysAndValues ...interface{}) Logger {
	return l.clone(keysAndValues...)
}

// WithSource returns a new logger tagged with the given subsystem name.
func (l *logger) WithSource(source string) Logger {
	return l.clone("source", source)
}

// SetLevel changes the minimum level logged by this logger's whole family.
func (l *logger) SetLevel(level Level) {
	l.core.setLevel(level)
}

// SetFormat changes the output encoding used by this logger's whole family.
func (l *logger) SetFormat(format Format) {
	l.core.setFormat(format)
}

// SetStore attaches a LogStore that mirrors every logged entry.
func (l *logger) SetStore(store *LogStore) {
	l.core.store.Store(store)
}

// CloseStore closes and flushes the attached LogStore, if any.
func (l *logger) CloseStore() {
	if store := l.core.store.Swap(nil); store != nil {
		store.Close()
	}
}

// nopLogger is a no-op logger that discards all output.
type nopLogger struct{}

func (n *nopLogger) Debug(_ string, _ ...interface{})  {}
func (n *nopLogger) Info(_ string, _ ...interface{})   {}
func (n *nopLogger) Warn(_ string, _ ...interface{})   {}
func (n *nopLogger) Error(_ string, _ ...interface{})  {}
func (n *nopLogger) WithRequestID(_ string) Logger      { return n }
func (n *nopLogger) WithFields(_ ...interface{}) Logger { return n }
func (n *nopLogger) WithSource(_ string) Logger         { return n }
func (n *nopLogger) SetLevel(_ Level)                   {}
func (n *nopLogger) SetFormat(_ Format)                 {}
func (n *nopLogger) SetStore(_ *LogStore)               {}
func (n *nopLogger) CloseStore()                        {}
