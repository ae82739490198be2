// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package logutil

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// EnvDebug enables debug logging when set to "true".
const EnvDebug = "ODATA_DEBUG"

// sink holds the handler settings the global logger is rebuilt from.
type sink struct {
	w          io.Writer
	level      Level
	structured bool
	logger     *slog.Logger
}

var (
	mu     sync.RWMutex
	global = sink{w: os.Stderr, level: LevelInfo}
)

func init() {
	SetupLogger(false, false)
}

// SetupLogger configures the global logger writing to stderr.
// When structured is true logs are JSON, otherwise slog text format.
// Attributes whose keys name a secret are always written as [REDACTED].
func SetupLogger(debug, structured bool) {
	SetupLoggerWithWriter(os.Stderr, debug, structured)
}

// SetupLoggerWithWriter is SetupLogger with a custom destination, mostly for tests.
func SetupLoggerWithWriter(w io.Writer, debug, structured bool) {
	level := LevelInfo
	if debug {
		level = LevelDebug
	}
	update(func(s *sink) {
		s.w = w
		s.level = level
		s.structured = structured
	})
}

// SetOutput redirects the global logger, keeping level and format.
func SetOutput(w io.Writer) {
	update(func(s *sink) { s.w = w })
}

// SetLevel changes the global threshold.
func SetLevel(level Level) {
	update(func(s *sink) { s.level = level })
}

// GetLevel returns the global threshold.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return global.level
}

func update(fn func(*sink)) {
	mu.Lock()
	defer mu.Unlock()
	fn(&global)
	global.logger = slog.New(global.handler())
	slog.SetDefault(global.logger)
}

func (s *sink) handler() slog.Handler {
	level := s.level
	if os.Getenv(EnvDebug) == "true" {
		level = LevelDebug
	}
	opts := &slog.HandlerOptions{
		Level:       level.slogLevel(),
		ReplaceAttr: redactAttr,
	}
	if s.structured {
		return slog.NewJSONHandler(s.w, opts)
	}
	return slog.NewTextHandler(s.w, opts)
}

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return levelNames[LevelInfo]
}

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a Level.
// Anything else is LevelInfo.
func ParseLevel(s string) Level {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		return LevelWarn
	}
	for l, n := range levelNames {
		if n == name {
			return l
		}
	}
	return LevelInfo
}

// IsDebugEnabled reports whether debug records are emitted, either because the
// level is LevelDebug or because ODATA_DEBUG=true.
func IsDebugEnabled() bool {
	return GetLevel() == LevelDebug || os.Getenv(EnvDebug) == "true"
}

// Debug logs at debug level when IsDebugEnabled.
func Debug(msg string, args ...any) {
	if IsDebugEnabled() {
		Logger().Debug(msg, args...)
	}
}

func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// Logger returns the global slog.Logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global.logger
}
