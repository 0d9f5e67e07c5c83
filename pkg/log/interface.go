// Package log provides a structured logging interface for treeml estimators.
//
// The interface is slog-compatible and backed by zerolog by default. Estimators
// obtain a component logger once at construction time:
//
//	logger := log.GetLoggerWithName("tree.classifier")
//	logger.Info("fit completed",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 1000,
//	    log.TreeDepthKey, 7,
//	)

package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. With returns a child logger whose
// fields are attached to every subsequent record.
type Logger interface {
	// Debug logs a debug-level message, e.g. per-node split decisions.
	Debug(msg string, fields ...any)

	// Info logs an info-level message.
	//
	// Example:
	//   logger.Info("fit completed",
	//       log.DurationMsKey, 12,
	//       log.TreeLeavesKey, 31,
	//   )
	Info(msg string, fields ...any)

	// Warn logs a warning-level message.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it is
	// attached under the "error" key together with its stack trace.
	//
	// Example:
	//   logger.Error("fit failed", err, log.OperationKey, log.OperationFit)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip building expensive debug payloads.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers that share a level and destination.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
