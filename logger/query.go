package logger

import (
	"fmt"
	"strings"
	"time"
)

// QueryLogger adds backend query logging on top of a Logger.
type QueryLogger struct {
	Logger
}

// NewQueryLogger wraps l; a nil l yields a logger that discards everything.
func NewQueryLogger(l Logger) *QueryLogger {
	return &QueryLogger{Logger: OrNull(l)}
}

// LogSQL logs a SQL statement with its arguments and duration at debug level.
func (l *QueryLogger) LogSQL(sql string, args []any, duration time.Duration) {
	if l.GetLevel() < LogLevelDebug {
		return
	}
	l.Debug("SQL (%v): %s", duration, strings.TrimSpace(sql))
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = fmt.Sprintf("%v", arg)
		}
		l.Debug("Args: [%s]", strings.Join(parts, ", "))
	}
}

// LogFind logs a generic backend find (memory, MongoDB) at debug level.
func (l *QueryLogger) LogFind(model, filter string, rows int, duration time.Duration) {
	if l.GetLevel() < LogLevelDebug {
		return
	}
	if filter == "" {
		filter = "<all>"
	}
	l.Debug("Find %s (%v) where %s -> %d rows", model, duration, filter, rows)
}
