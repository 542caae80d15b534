package logger

import "io"

// NullLogger discards all output.
type NullLogger struct {
	level LogLevel
}

// NewNullLogger creates a logger that drops every message
func NewNullLogger() *NullLogger {
	return &NullLogger{level: LogLevelNone}
}

// Debug discards the message
func (n *NullLogger) Debug(format string, args ...any) {}

// Info discards the message
func (n *NullLogger) Info(format string, args ...any) {}

// Warn discards the message
func (n *NullLogger) Warn(format string, args ...any) {}

// Error discards the message
func (n *NullLogger) Error(format string, args ...any) {}

// SetLevel records level so GetLevel can report it
func (n *NullLogger) SetLevel(level LogLevel) { n.level = level }

// GetLevel returns the recorded level
func (n *NullLogger) GetLevel() LogLevel { return n.level }

// SetOutput is a no-op
func (n *NullLogger) SetOutput(w io.Writer) {}
