// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package logutil

import "log/slog"

// ComponentLogger provides component-scoped structured logging.
// It wraps slog.Logger with convenient context chaining.
type ComponentLogger struct {
	slogger   *slog.Logger
	component string
}

// NewLogger creates a Logger scoped to a named component using the global handler.
func NewLogger(component string) *ComponentLogger {
	return FromSlog(Logger(), component)
}

// FromSlog scopes an existing slog.Logger to a component.
// A nil logger falls back to the global one.
func FromSlog(l *slog.Logger, component string) *ComponentLogger {
	if l == nil {
		l = Logger()
	}
	return &ComponentLogger{
		slogger:   l.With("component", component),
		component: component,
	}
}

// WithEndpoint returns a new Logger carrying the endpoint being processed.
func (l *ComponentLogger) WithEndpoint(endpoint string) *ComponentLogger {
	return l.with("endpoint", endpoint)
}

// WithOperation returns a new Logger with the operation context added.
func (l *ComponentLogger) WithOperation(name string) *ComponentLogger {
	return l.with("operation", name)
}

// WithFields returns a new Logger with additional fields.
// Fields are provided as alternating key-value pairs.
func (l *ComponentLogger) WithFields(fields ...any) *ComponentLogger {
	return l.with(fields...)
}

func (l *ComponentLogger) with(args ...any) *ComponentLogger {
	return &ComponentLogger{
		slogger:   l.slogger.With(args...),
		component: l.component,
	}
}

// Component returns the component name for this logger.
func (l *ComponentLogger) Component() string {
	return l.component
}

// Slog exposes the scoped slog.Logger.
func (l *ComponentLogger) Slog() *slog.Logger {
	return l.slogger
}

// Debug logs a message at debug level.
func (l *ComponentLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs a message at info level.
func (l *ComponentLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs a message at warn level.
func (l *ComponentLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs a message at error level.
func (l *ComponentLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}
