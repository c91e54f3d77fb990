// Package stats records per-frame renderer timings, geometry volume and sync
// waits, and exports them to Prometheus.
package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/irfansharif/guistream/internal/fence"
)

// WindowSize is the number of draw-time samples the rolling mean covers.
const WindowSize = 100

// FrameStats is a snapshot of the tracker.
type FrameStats struct {
	// DrawTimeMs is the wall time of the last frame's batch build and draw
	// issuance.
	DrawTimeMs float64
	// MeanDrawTimeMs is the mean of the last WindowSize draw times. Slots not
	// yet written count as zero, so the mean under-reports until the window
	// has filled.
	MeanDrawTimeMs float64
	// FrameTimeMs is the wall time from BeginFrame to the end of RenderFrame.
	FrameTimeMs float64

	SyncWaitNs    int64
	MaxSyncWaitNs int64
	SyncTimedOut  bool
	SyncTimeout   time.Duration

	VertexCount    int
	MaxVertexCount int
	IndexCount     int
	MaxIndexCount  int
	VertexCapacity int
	IndexCapacity  int

	DrawCalls     int
	CulledBatches int

	Frames       uint64
	SyncTimeouts uint64
	Overflows    uint64
}

// String renders the snapshot as the multi-line summary shown by the demo.
func (s FrameStats) String() string {
	return fmt.Sprintf(
		"time: %.3f ms (mean %.3f ms, frame %.3f ms)\n"+
			"vert: %d / %d (max %d)\n"+
			"idx:  %d / %d (max %d)\n"+
			"draw: %d calls, %d culled\n"+
			"sync: %d ns (max %d ns, timeout %s, %d timeouts)",
		s.DrawTimeMs, s.MeanDrawTimeMs, s.FrameTimeMs,
		s.VertexCount, s.VertexCapacity, s.MaxVertexCount,
		s.IndexCount, s.IndexCapacity, s.MaxIndexCount,
		s.DrawCalls, s.CulledBatches,
		s.SyncWaitNs, s.MaxSyncWaitNs, s.SyncTimeout, s.SyncTimeouts,
	)
}

// Tracker accumulates FrameStats. Recording happens on the render goroutine;
// Snapshot may be called from any goroutine.
type Tracker struct {
	mu     sync.Mutex
	window [WindowSize]float64
	next   int
	stats  FrameStats
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordFrame stores a draw time, overwriting the oldest sample, and
// recomputes the mean over the whole window.
func (t *Tracker) RecordFrame(drawTimeMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window[t.next] = drawTimeMs
	t.next = (t.next + 1) % WindowSize

	sum := 0.0
	for _, v := range t.window {
		sum += v
	}
	t.stats.DrawTimeMs = drawTimeMs
	t.stats.MeanDrawTimeMs = sum / WindowSize
	t.stats.Frames++
}

// RecordFrameTime stores the begin-to-render time of the last frame.
func (t *Tracker) RecordFrameTime(ms float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.FrameTimeMs = ms
}

// RecordGeometry stores the last frame's geometry volume and raises the
// high-water marks.
func (t *Tracker) RecordGeometry(vertices, indices int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.VertexCount, t.stats.IndexCount = vertices, indices
	t.stats.MaxVertexCount = max(t.stats.MaxVertexCount, vertices)
	t.stats.MaxIndexCount = max(t.stats.MaxIndexCount, indices)
}

// RecordCapacity stores the configured slot capacities.
func (t *Tracker) RecordCapacity(vertices, indices int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.VertexCapacity, t.stats.IndexCapacity = vertices, indices
}

// RecordSync stores the outcome of the last fence wait.
func (t *Tracker) RecordSync(w fence.Wait, timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.SyncWaitNs = w.Elapsed.Nanoseconds()
	t.stats.MaxSyncWaitNs = max(t.stats.MaxSyncWaitNs, t.stats.SyncWaitNs)
	t.stats.SyncTimedOut = w.TimedOut
	t.stats.SyncTimeout = timeout
	if w.TimedOut {
		t.stats.SyncTimeouts++
	}
}

// RecordSyncTimeout stores the bound on fence waits, ahead of the next wait.
func (t *Tracker) RecordSyncTimeout(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.SyncTimeout = timeout
}

// RecordDraws stores the number of draw calls issued and batches culled.
func (t *Tracker) RecordDraws(calls, culled int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.DrawCalls, t.stats.CulledBatches = calls, culled
}

// RecordOverflow counts a frame dropped for exceeding slot capacity.
func (t *Tracker) RecordOverflow() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Overflows++
	t.stats.DrawCalls, t.stats.CulledBatches = 0, 0
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() FrameStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
