package shadertoggle

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/shadertoggle/backend/wgpu"
	"github.com/gogpu/shadertoggle/executor"
	"github.com/gogpu/shadertoggle/recording"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Callbacks log from recording
// threads while SetLogger may run on any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for shadertoggle and its sub-packages.
// By default nothing is logged. Pass nil to restore silence.
//
// SetLogger is safe for concurrent use.
//
// Log levels used by shadertoggle:
//   - [slog.LevelDebug]: queue and resolution decisions
//   - [slog.LevelInfo]: adapter selection and engine creation
//   - [slog.LevelWarn]: failed restores, failed texture recreation, dropped tasks
//
// Example:
//
//	shadertoggle.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	recording.SetLogger(l)
	executor.SetLogger(l)
	wgpu.SetLogger(l)
}

// Logger returns the current logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
