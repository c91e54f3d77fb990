package guistream

import (
	"time"

	"go.uber.org/zap"

	"github.com/irfansharif/guistream/gpu"
	"github.com/irfansharif/guistream/internal/stats"
)

// DefaultSyncTimeout bounds the per-frame fence wait.
const DefaultSyncTimeout = 5 * time.Millisecond

// Option configures a Renderer.
type Option func(*options)

type options struct {
	syncTimeout time.Duration
	logger      *zap.Logger
	clipOrigin  *gpu.ClipOrigin
	tracker     *stats.Tracker
}

func defaultOptions() options {
	return options{
		syncTimeout: DefaultSyncTimeout,
	}
}

// WithSyncTimeout sets the fence wait timeout. A timed out wait does not
// fail the frame; it is reported through SyncResult.TimedOut.
func WithSyncTimeout(d time.Duration) Option {
	return func(o *options) {
		o.syncTimeout = d
	}
}

// WithLogger sets the renderer's logger, overriding the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClipOrigin overrides the clip origin reported by the device, which
// decides whether scissor boxes are Y-flipped and whether the projection
// swaps top and bottom.
func WithClipOrigin(origin gpu.ClipOrigin) Option {
	return func(o *options) {
		o.clipOrigin = &origin
	}
}

// WithTracker makes the renderer record into t, so several consumers (a
// metrics collector, an overlay) can share one tracker.
func WithTracker(t *stats.Tracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}
