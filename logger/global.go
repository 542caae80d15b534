package logger

import "sync"

var (
	globalLogger Logger = NewNullLogger()
	globalMu     sync.RWMutex
)

// SetGlobalLogger replaces the process-wide logger used by packages that
// were not handed one explicitly. nil installs a NullLogger.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = OrNull(l)
}

// GetGlobalLogger returns the process-wide logger
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Debug logs a debug message through the global logger
func Debug(format string, args ...any) { GetGlobalLogger().Debug(format, args...) }

// Info logs an info message through the global logger
func Info(format string, args ...any) { GetGlobalLogger().Info(format, args...) }

// Warn logs a warning message through the global logger
func Warn(format string, args ...any) { GetGlobalLogger().Warn(format, args...) }

// Error logs an error message through the global logger
func Error(format string, args ...any) { GetGlobalLogger().Error(format, args...) }
