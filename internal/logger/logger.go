// Package logger provides the structured, component-scoped logging used
// throughout the extraction pipeline, HTTP engine and download coordinator.
// It keeps the Component/Level vocabulary the rest of this module's
// packages are written against, backed by zerolog.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Component names the subsystem an entry originates from. Callers fetch a
// logger scoped to their component via WithComponent rather than logging
// directly against the global logger.
type Component string

const (
	ComponentApp        Component = "app"
	ComponentHTTP       Component = "http"
	ComponentCipher     Component = "cipher"
	ComponentInnertube  Component = "innertube"
	ComponentFormat     Component = "format"
	ComponentDownloader Component = "downloader"
	ComponentSandbox    Component = "sandbox"
	ComponentPOToken    Component = "potoken"
	ComponentMuxer      Component = "muxer"
	ComponentPCM        Component = "pcm"
)

// Level mirrors zerolog's levels under names the rest of this module already
// uses in flags and config (trace/debug/info/warn/error).
type Level = zerolog.Level

const (
	LevelTrace = zerolog.TraceLevel
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
	LevelOff   = zerolog.Disabled
)

// Logger wraps a zerolog.Logger plus per-component enable/disable state.
type Logger struct {
	mu       sync.RWMutex
	base     zerolog.Logger
	disabled map[Component]bool
}

// New builds a Logger writing level-colored text to w (os.Stderr is the
// typical choice; tests use an in-memory buffer).
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.SetGlobalLevel(level)
	base := zerolog.New(w).With().Timestamp().Logger().Level(level)
	return &Logger{base: base, disabled: make(map[Component]bool)}
}

// NewJSON builds a Logger writing raw JSON lines, for machine consumption
// (the CLI's -j output pipes stdout, so structured logs go to stderr here).
func NewJSON(w io.Writer, level Level) *Logger {
	return New(w, level)
}

var (
	globalMu sync.RWMutex
	global   = New(os.Stderr, LevelInfo)
)

// SetGlobal installs l as the logger returned by WithComponent calls made
// with no explicit Logger.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the process-wide default logger.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Disable turns off all log output for c on this logger.
func (l *Logger) Disable(c Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disabled[c] = true
}

// Enable turns log output for c back on.
func (l *Logger) Enable(c Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.disabled, c)
}

// WithComponent returns a ComponentLogger scoped to c. If c has been
// disabled on l, the returned logger is a zerolog.Disabled no-op.
func (l *Logger) WithComponent(c Component) *ComponentLogger {
	l.mu.RLock()
	off := l.disabled[c]
	l.mu.RUnlock()

	zl := l.base.With().Str("component", string(c)).Logger()
	if off {
		zl = zl.Level(zerolog.Disabled)
	}
	return &ComponentLogger{zl: zl}
}

// ComponentLogger is the handle every package actually logs through.
type ComponentLogger struct {
	zl zerolog.Logger
}

func (c *ComponentLogger) Trace() *zerolog.Event { return c.zl.Trace() }
func (c *ComponentLogger) Debug() *zerolog.Event { return c.zl.Debug() }
func (c *ComponentLogger) Info() *zerolog.Event  { return c.zl.Info() }
func (c *ComponentLogger) Warn() *zerolog.Event  { return c.zl.Warn() }
func (c *ComponentLogger) Error() *zerolog.Event { return c.zl.Error() }

// WithComponent is the package-level convenience most call sites use,
// scoping against the process-wide global logger.
func WithComponent(c Component) *ComponentLogger {
	return Global().WithComponent(c)
}
