// Package observability defines shared logging primitives.
package observability

import "log"

// Logger captures structured logging behaviours shared across layers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key/value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

var defaultLogger Logger = noopLogger{}

// SetLogger overrides the global logger used by the client.
func SetLogger(logger Logger) {
	if logger == nil {
		defaultLogger = noopLogger{}
		return
	}
	defaultLogger = logger
}

// Log returns the current global logger instance.
func Log() Logger {
	return defaultLogger
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}

// StdLogger writes through the standard library logger. Useful for the demo
// binary and tests; services plug their own Logger in via SetLogger.
type StdLogger struct{}

func (StdLogger) Debug(msg string, fields ...Field) { std("DEBUG", msg, fields) }
func (StdLogger) Info(msg string, fields ...Field)  { std("INFO", msg, fields) }
func (StdLogger) Error(msg string, fields ...Field) { std("ERROR", msg, fields) }

func std(level, msg string, fields []Field) {
	if len(fields) == 0 {
		log.Printf("%s %s", level, msg)
		return
	}
	args := make([]any, 0, len(fields)*2)
	format := "%s %s"
	args = append(args, level, msg)
	for _, f := range fields {
		format += " %s=%v"
		args = append(args, f.Key, f.Value)
	}
	log.Printf(format, args...)
}
