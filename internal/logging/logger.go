package logging

import (
	"fmt"
	"io"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Level represents a logging severity.
type Level = charmlog.Level

const (
	Debug = charmlog.DebugLevel
	Info  = charmlog.InfoLevel
	Warn  = charmlog.WarnLevel
	Error = charmlog.ErrorLevel
)

// ParseLevel converts a string to a Level. An empty string selects Info.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return Info, nil
	case "warning":
		s = "warn"
	}
	lvl, err := charmlog.ParseLevel(s)
	if err != nil || lvl > Error {
		return Info, fmt.Errorf("unsupported log level %q", s)
	}
	return lvl, nil
}

// Format controls how log entries are rendered.
type Format = charmlog.Formatter

const (
	Text   = charmlog.TextFormatter
	JSON   = charmlog.JSONFormatter
	Logfmt = charmlog.LogfmtFormatter
)

var formats = map[string]Format{"": Text, "text": Text, "json": JSON, "logfmt": Logfmt}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Text, fmt.Errorf("unsupported log format %q", s)
	}
	return f, nil
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// Logger defines leveled structured logging operations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Default returns the process-wide logger.
func Default() Logger {
	if defaultLogger == nil {
		defaultLogger = New(Info, Text, io.Discard)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}

var defaultLogger Logger

type charmLogger struct {
	underlying *charmlog.Logger
}

// New constructs a Logger with the given level, format, and output writer.
func New(level Level, format Format, out io.Writer) Logger {
	return &charmLogger{
		underlying: charmlog.NewWithOptions(out, charmlog.Options{
			Level:           level,
			Formatter:       format,
			ReportTimestamp: true,
		}),
	}
}

func (l *charmLogger) With(fields ...Field) Logger {
	return &charmLogger{underlying: l.underlying.With(keyvals(fields)...)}
}

func (l *charmLogger) Debug(msg string, fields ...Field) { l.underlying.Debug(msg, keyvals(fields)...) }
func (l *charmLogger) Info(msg string, fields ...Field)  { l.underlying.Info(msg, keyvals(fields)...) }
func (l *charmLogger) Warn(msg string, fields ...Field)  { l.underlying.Warn(msg, keyvals(fields)...) }
func (l *charmLogger) Error(msg string, fields ...Field) { l.underlying.Error(msg, keyvals(fields)...) }

// keyvals flattens fields for charmlog, skipping unnamed ones.
func keyvals(fields []Field) []any {
	out := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		out = append(out, f.Key, f.Value)
	}
	return out
}
