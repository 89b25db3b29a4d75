package core

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a firmware subsystem for log filtering.
type Component string

// Firmware component identifiers.
const (
	ComponentRing     Component = "ring"
	ComponentPacker   Component = "packer"
	ComponentEP0      Component = "ep0"
	ComponentDispatch Component = "dispatch"
	ComponentWatchdog Component = "watchdog"
	ComponentReboot   Component = "reboot"
	ComponentCommand  Component = "command"
)

var (
	// DefaultLogger is used by devices created without Config.Logger.
	DefaultLogger *slog.Logger

	logLevel = new(slog.LevelVar)
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLogLevel sets the minimum level of the default logger.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLogger replaces the default logger. Devices pick it up when created.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// NewLogger creates a text logger writing to w at the shared level.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func defaultLogger() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// componentLogger tags every record with its component.
type componentLogger struct {
	l *slog.Logger
}

func (c componentLogger) debug(component Component, msg string, args ...any) {
	c.l.Debug(msg, append([]any{"component", string(component)}, args...)...)
}

func (c componentLogger) warn(component Component, msg string, args ...any) {
	c.l.Warn(msg, append([]any{"component", string(component)}, args...)...)
}

func (c componentLogger) error(component Component, msg string, args ...any) {
	c.l.Error(msg, append([]any{"component", string(component)}, args...)...)
}
