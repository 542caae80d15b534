package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// DefaultLogger writes timestamped, colored lines to an io.Writer.
type DefaultLogger struct {
	mu      sync.RWMutex
	level   LogLevel
	logger  *log.Logger
	prefix  string
	noColor bool
}

// NewDefaultLogger creates a logger at info level writing to stdout.
func NewDefaultLogger(prefix string) *DefaultLogger {
	return &DefaultLogger{
		level:  LogLevelInfo,
		logger: log.New(os.Stdout, "", 0),
		prefix: prefix,
	}
}

// SetLevel sets the logging level
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *DefaultLogger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetOutput sets the output writer
func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// SetColor toggles ANSI level colors. Colors are on by default.
func (l *DefaultLogger) SetColor(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.noColor = !enabled
}

// log writes a message when level is enabled
func (l *DefaultLogger) log(level LogLevel, format string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.level < level {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)
	levelStr := level.String()
	if !l.noColor {
		levelStr = GetLevelColor(level) + levelStr + ColorReset
	}

	if l.prefix != "" {
		l.logger.Printf("%s [%s] %s: %s", timestamp, l.prefix, levelStr, message)
	} else {
		l.logger.Printf("%s %s: %s", timestamp, levelStr, message)
	}
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an info message
func (l *DefaultLogger) Info(format string, args ...any) {
	l.log(LogLevelInfo, format, args...)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(format string, args ...any) {
	l.log(LogLevelWarn, format, args...)
}

// Error logs an error message
func (l *DefaultLogger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}
