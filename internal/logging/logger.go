package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	charm "github.com/charmbracelet/log"
)

// Level represents a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) charm() charm.Level {
	switch l {
	case Debug:
		return charm.DebugLevel
	case Warn:
		return charm.WarnLevel
	case Error:
		return charm.ErrorLevel
	default:
		return charm.InfoLevel
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Level(0), fmt.Errorf("unsupported log level %q", s)
	}
}

// Format controls how log entries are rendered.
type Format int

const (
	Text Format = iota
	JSON
)

func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "text", "":
		return Text, nil
	default:
		return Format(0), fmt.Errorf("unsupported log format %q", s)
	}
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for building a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger defines leveled structured logging operations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// Default returns the process-wide logger. Until SetDefault is called it
// writes warnings and errors to stderr.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(Warn, Text, os.Stderr)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() Logger {
	return New(Error+1, Text, io.Discard)
}

type charmLogger struct {
	level Level
	l     *charm.Logger
}

// New constructs a Logger with the given level, format, and output writer.
func New(level Level, format Format, out io.Writer) Logger {
	opts := charm.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
	}
	if format == JSON {
		opts.Formatter = charm.JSONFormatter
	} else {
		opts.Formatter = charm.TextFormatter
	}
	return &charmLogger{level: level, l: charm.NewWithOptions(out, opts)}
}

func (c *charmLogger) With(fields ...Field) Logger {
	return &charmLogger{level: c.level, l: c.l.With(keyvals(fields)...)}
}

func (c *charmLogger) Debug(msg string, fields ...Field) { c.log(Debug, msg, fields) }
func (c *charmLogger) Info(msg string, fields ...Field)  { c.log(Info, msg, fields) }
func (c *charmLogger) Warn(msg string, fields ...Field)  { c.log(Warn, msg, fields) }
func (c *charmLogger) Error(msg string, fields ...Field) { c.log(Error, msg, fields) }

func (c *charmLogger) log(level Level, msg string, fields []Field) {
	// charm has no level above error, so the discard logger filters here.
	if level < c.level {
		return
	}
	c.l.Log(level.charm(), msg, keyvals(fields)...)
}

func keyvals(fields []Field) []any {
	kv := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
