// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides a small component-scoped logger on top of
// github.com/charmbracelet/log, used by every layer of the simulator instead of
// the bare standard library logger.
package logging

import (
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Level mirrors charmlog's level so callers don't need to import it directly.
type Level = charmlog.Level

const (
	LevelDebug = charmlog.DebugLevel
	LevelInfo  = charmlog.InfoLevel
	LevelWarn  = charmlog.WarnLevel
	LevelError = charmlog.ErrorLevel
)

// Config controls the root logger's behavior.
type Config struct {
	Output io.Writer
	Level  Level
	JSON   bool // headless/CI runs prefer structured JSON over the styled console writer
}

// Logger is a component-scoped, chainable wrapper around charmlog.Logger.
type Logger struct {
	inner *charmlog.Logger
}

var (
	rootMu sync.RWMutex
	root   = New(Config{Output: os.Stderr, Level: LevelInfo})
)

// New builds a root Logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := charmlog.Options{
		Level:           cfg.Level,
		ReportTimestamp: true,
	}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	return &Logger{inner: charmlog.NewWithOptions(cfg.Output, opts)}
}

// SetRoot replaces the process-wide root logger used by WithComponent.
func SetRoot(l *Logger) {
	rootMu.Lock()
	defer rootMu.Unlock()
	root = l
}

// WithComponent returns a logger scoped to the named component, following the
// root logger's output and level.
func WithComponent(name string) *Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return &Logger{inner: root.inner.With("component", name)}
}

// With returns a logger with additional key/value pairs attached to every entry.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}

// WithError attaches an error to the logger's scope.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{inner: l.inner.With("error", err.Error())}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }
