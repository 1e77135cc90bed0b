package shadow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for shadow and the devices of open renderers.
// By default, shadow produces no log output. Pass nil to restore silence.
//
// Log levels used by shadow:
//   - [slog.LevelDebug]: per-draw diagnostics (unused attributes, buffer uploads, skipped draws)
//   - [slog.LevelInfo]: lifecycle events (program compiled, renderer closed)
//   - [slog.LevelWarn]: probable caller mistakes (buffer contributes no attributes,
//     attribute type mismatch in permissive mode, release failures)
//
// Example:
//
//	shadow.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	settersMu.Lock()
	defer settersMu.Unlock()
	for s := range setters {
		s.SetLogger(l)
	}
}

// Logger returns the current logger used by shadow.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// setters counts the open renderers of each device that follows SetLogger.
var (
	settersMu sync.Mutex
	setters   = make(map[loggerSetter]int)
)

// propagateLogger hands the current logger to dev if it accepts one and keeps
// it updated until a matching forgetLogger. It reports whether dev was
// registered.
func propagateLogger(dev any) bool {
	ls, ok := dev.(loggerSetter)
	if !ok {
		return false
	}
	ls.SetLogger(Logger())

	settersMu.Lock()
	setters[ls]++
	settersMu.Unlock()
	return true
}

func forgetLogger(dev any) {
	ls, ok := dev.(loggerSetter)
	if !ok {
		return
	}
	settersMu.Lock()
	defer settersMu.Unlock()
	if setters[ls] <= 1 {
		delete(setters, ls)
		return
	}
	setters[ls]--
}

func slogger() *slog.Logger { return loggerPtr.Load() }
