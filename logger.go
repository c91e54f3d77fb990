package guistream

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerPtr stores the package logger. Accessed atomically so SetLogger can
// be called while renderers are running on another goroutine.
var loggerPtr atomic.Pointer[zap.Logger]

func init() {
	loggerPtr.Store(zap.NewNop())
}

// SetLogger configures the logger used by renderers created afterwards that
// were not given one with WithLogger. By default nothing is logged. Pass nil
// to restore that.
//
// Log levels used:
//   - Debug: per-frame diagnostics (batch counts, slot usage, wait times)
//   - Info: lifecycle events (slot allocation, shutdown)
//   - Warn: sync timeouts and dropped frames
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
func Logger() *zap.Logger {
	return loggerPtr.Load()
}
