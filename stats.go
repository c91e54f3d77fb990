package guistream

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/irfansharif/guistream/internal/stats"
)

// FrameStats is a snapshot of a renderer's statistics.
type FrameStats = stats.FrameStats

// Tracker accumulates FrameStats. It is safe to snapshot from any goroutine.
type Tracker = stats.Tracker

// WindowSize is the number of frames the mean draw time covers.
const WindowSize = stats.WindowSize

// NewTracker returns an empty tracker, for sharing through WithTracker.
func NewTracker() *Tracker { return stats.NewTracker() }

// NewCollector returns a Prometheus collector exporting t's snapshots under
// namespace.
func NewCollector(namespace string, t *Tracker) prometheus.Collector {
	return stats.NewCollector(namespace, t)
}
