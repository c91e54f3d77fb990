// Package guistream streams immediate-mode UI geometry to a graphics device
// through a pair of persistently mapped buffer slots.
//
// Each frame the UI's draw lists are copied into the active slot and drawn
// from it, then the renderer waits (with a bounded timeout) for the device to
// finish with the other slot, arms a completion fence for the active one and
// swaps. The host therefore writes frame N+1 while the device may still be
// reading frame N, and never writes into a slot whose previous draws have not
// been waited on.
//
// A frame is driven as:
//
//	r.BeginFrame(ui, params)
//	// build the UI with ui.NewList()...
//	res, err := r.RenderFrame(ui)
//	sync, err := r.SynchronizeFrame()
//
// A Renderer is bound to the goroutine (and OS thread) owning the device.
package guistream

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
	"github.com/irfansharif/guistream/internal/batch"
	"github.com/irfansharif/guistream/internal/fence"
	"github.com/irfansharif/guistream/internal/memory"
	"github.com/irfansharif/guistream/internal/render"
	"github.com/irfansharif/guistream/internal/stats"
)

// phase is where the renderer is within a frame.
type phase int

const (
	phaseIdle     phase = iota // synchronized, waiting for BeginFrame
	phaseBegun                 // BeginFrame called
	phaseRendered              // RenderFrame called, SynchronizeFrame pending
)

// FrameResult describes one RenderFrame.
type FrameResult struct {
	// Slot is the slot the frame's geometry was written to.
	Slot int
	// DrawCalls and Culled count issued and culled batches.
	DrawCalls int
	Culled    int
	// Vertices and Indices are the elements copied into the slot.
	Vertices int
	Indices  int
	// DrawTime is the time spent building batches and issuing draws.
	DrawTime time.Duration
	// Dropped is set when the frame was not drawn because of an error.
	Dropped bool
}

// SyncResult describes one SynchronizeFrame.
type SyncResult struct {
	// Waited is the slot whose fence was waited on; it is the next active
	// slot.
	Waited int
	// Armed is the slot a new fence was armed for.
	Armed int
	Wait  time.Duration
	// TimedOut is set when the wait returned before the device signaled. The
	// renderer proceeds regardless.
	TimedOut bool
	Status   gpu.WaitStatus
}

// Renderer is the frame driver.
type Renderer struct {
	dev    gpu.Device
	logger *zap.Logger

	syncTimeout time.Duration
	origin      gpu.ClipOrigin

	slots   *memory.SlotPair
	gate    *fence.Gate
	builder *batch.Builder
	draw    *render.Renderer
	tracker *stats.Tracker

	active     int
	frame      uint64
	phase      phase
	frameStart time.Time
	last       FrameResult
	lastSync   SyncResult
}

// New returns a renderer for dev. Call Initialize before the first frame.
func New(dev gpu.Device, opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.tracker == nil {
		o.tracker = stats.NewTracker()
	}
	r := &Renderer{
		dev:         dev,
		logger:      o.logger.Named("guistream"),
		syncTimeout: o.syncTimeout,
		origin:      dev.ClipOrigin(),
		tracker:     o.tracker,
	}
	if o.clipOrigin != nil {
		r.origin = *o.clipOrigin
	}
	return r
}

// Initialize creates the device resources: the font texture of ui's atlas
// (skipped when ui is nil), the shader program, and both geometry slots with
// the given capacities in elements. Size the capacities from a dry run of
// typical frames, see Measure. Failures are returned as
// *ResourceAllocationError and leave nothing allocated.
func (r *Renderer) Initialize(ui *drawlist.Context, vertexCapacity, indexCapacity int) error {
	if r.slots != nil {
		return fmt.Errorf("guistream: already initialized: %w", ErrFrameSequence)
	}

	var atlas *drawlist.FontAtlas
	if ui != nil {
		atlas = ui.FontAtlas()
	}
	draw, err := render.New(r.dev, atlas, r.origin, r.logger)
	if err != nil {
		var serr *gpu.ShaderError
		if errors.As(err, &serr) {
			return allocationError("shader program", err)
		}
		return allocationError("font texture", err)
	}

	slots, err := memory.New(r.dev, vertexCapacity, indexCapacity, r.logger)
	if err != nil {
		draw.Shutdown()
		return allocationError("geometry slots", err)
	}

	r.draw = draw
	r.slots = slots
	r.gate = fence.NewGate(r.dev, r.logger)
	r.builder = batch.NewBuilder(r.logger)
	r.active, r.frame, r.phase = 0, 0, phaseIdle
	r.tracker.RecordCapacity(vertexCapacity, indexCapacity)
	r.tracker.RecordSync(fence.Wait{}, r.syncTimeout)

	r.logger.Info("renderer initialized",
		zap.Int("vertex_capacity", vertexCapacity),
		zap.Int("index_capacity", indexCapacity),
		zap.Duration("sync_timeout", r.syncTimeout),
		zap.Stringer("clip_origin", r.origin),
	)
	return nil
}

// BeginFrame starts a frame on ui. It must precede building the frame's
// geometry and follow the previous frame's SynchronizeFrame.
func (r *Renderer) BeginFrame(ui *drawlist.Context, params drawlist.FrameParams) error {
	if r.slots == nil {
		return ErrNotInitialized
	}
	if r.phase != phaseIdle {
		return fmt.Errorf("BeginFrame in frame %d before SynchronizeFrame: %w", r.frame, ErrFrameSequence)
	}
	if err := ui.NewFrame(params); err != nil {
		return fmt.Errorf("starting UI frame: %w", err)
	}
	r.frameStart = time.Now()
	r.phase = phaseBegun
	return nil
}

// RenderFrame finalizes ui's frame, copies its geometry into the active slot
// and issues its draws. If the geometry does not fit the slot the frame is
// dropped with an *OverflowError and no draws are issued; the frame must
// still be synchronized.
func (r *Renderer) RenderFrame(ui *drawlist.Context) (FrameResult, error) {
	if r.slots == nil {
		return FrameResult{}, ErrNotInitialized
	}
	if r.phase != phaseBegun {
		return FrameResult{}, fmt.Errorf("RenderFrame in frame %d without BeginFrame: %w", r.frame, ErrFrameSequence)
	}
	r.phase = phaseRendered

	data, err := ui.Render()
	if err != nil {
		r.last = FrameResult{Slot: r.active, Dropped: true}
		return r.last, fmt.Errorf("finalizing UI frame: %w", err)
	}
	return r.renderData(data)
}

func (r *Renderer) renderData(data *drawlist.DrawData) (FrameResult, error) {
	slot := r.slots.Slot(r.active)
	start := time.Now()

	f, err := r.builder.Build(data, slot)
	if err != nil {
		r.last = FrameResult{Slot: r.active, Dropped: true}
		var oerr *OverflowError
		if errors.As(err, &oerr) {
			r.tracker.RecordOverflow()
		}
		return r.last, fmt.Errorf("frame %d: %w", r.frame, err)
	}

	res := r.draw.Issue(f, slot)
	if res.DrawCalls > 0 {
		slot.Release()
	}
	drawTime := time.Since(start)

	r.last = FrameResult{
		Slot:      r.active,
		DrawCalls: res.DrawCalls,
		Culled:    f.Culled,
		Vertices:  f.VertexCount,
		Indices:   f.IndexCount,
		DrawTime:  drawTime,
	}
	r.tracker.RecordFrame(ms(drawTime))
	r.tracker.RecordFrameTime(ms(time.Since(r.frameStart)))
	r.tracker.RecordGeometry(f.VertexCount, f.IndexCount)
	r.tracker.RecordDraws(res.DrawCalls, f.Culled)

	if ce := r.logger.Check(zap.DebugLevel, "frame rendered"); ce != nil {
		ce.Write(
			zap.Uint64("frame", r.frame),
			zap.Int("slot", r.active),
			zap.Int("lists", len(data.Lists)),
			zap.Int("draw_calls", res.DrawCalls),
			zap.Int("texture_binds", res.TextureBinds),
			zap.Int("culled", f.Culled),
			zap.Duration("draw_time", drawTime),
		)
		r.slots.LogUsage(r.active, memory.Usage{Vertices: f.VertexCount, Indices: f.IndexCount})
	}
	return r.last, nil
}

// SynchronizeFrame waits for the device to finish reading the other slot,
// arms a fence after the active slot's draws and makes the other slot
// active. It must be called exactly once per frame, after RenderFrame. A wait
// that times out is reported in SyncResult.TimedOut and otherwise ignored.
func (r *Renderer) SynchronizeFrame() (SyncResult, error) {
	if r.slots == nil {
		return SyncResult{}, ErrNotInitialized
	}
	if r.phase != phaseRendered {
		return SyncResult{}, fmt.Errorf("SynchronizeFrame in frame %d without RenderFrame: %w", r.frame, ErrFrameSequence)
	}

	next := 1 - r.active
	w := r.gate.Wait(next, r.syncTimeout)
	r.slots.Slot(next).Acquire()
	r.gate.Arm(r.active)

	r.lastSync = SyncResult{
		Waited:   next,
		Armed:    r.active,
		Wait:     w.Elapsed,
		TimedOut: w.TimedOut,
		Status:   w.Status,
	}
	r.tracker.RecordSync(w, r.syncTimeout)

	r.active = next
	r.frame++
	r.phase = phaseIdle
	return r.lastSync, nil
}

// ConfigureSyncTimeout sets the bound on the per-frame fence wait.
func (r *Renderer) ConfigureSyncTimeout(d time.Duration) {
	r.syncTimeout = d
	r.tracker.RecordSyncTimeout(d)
	r.logger.Debug("sync timeout configured", zap.Duration("timeout", d))
}

// SyncTimeout returns the bound on the per-frame fence wait.
func (r *Renderer) SyncTimeout() time.Duration { return r.syncTimeout }

// Stats returns a snapshot of the renderer's statistics.
func (r *Renderer) Stats() FrameStats { return r.tracker.Snapshot() }

// Tracker returns the tracker the renderer records into.
func (r *Renderer) Tracker() *Tracker { return r.tracker }

// DrawTime returns the last frame's batch build and draw issuance time.
func (r *Renderer) DrawTime() time.Duration { return r.last.DrawTime }

// MeanDrawTime returns the mean draw time over the last WindowSize frames,
// counting frames not yet rendered as zero.
func (r *Renderer) MeanDrawTime() time.Duration {
	return time.Duration(r.tracker.Snapshot().MeanDrawTimeMs * float64(time.Millisecond))
}

// VertexCount returns the vertices copied in the last frame.
func (r *Renderer) VertexCount() int { return r.last.Vertices }

// IndexCount returns the indices copied in the last frame.
func (r *Renderer) IndexCount() int { return r.last.Indices }

// SyncWaitTime returns the duration of the last fence wait.
func (r *Renderer) SyncWaitTime() time.Duration { return r.lastSync.Wait }

// ActiveSlot returns the slot the next frame is written to.
func (r *Renderer) ActiveSlot() int { return r.active }

// Frame returns the number of frames synchronized since Initialize.
func (r *Renderer) Frame() uint64 { return r.frame }

// FontTexture returns the device texture of the font atlas.
func (r *Renderer) FontTexture() drawlist.TextureID {
	if r.draw == nil {
		return 0
	}
	return r.draw.FontTexture()
}

// Shutdown releases every device resource. Fences are deleted without
// waiting; call it after the device is idle or the context is about to be
// destroyed. It is safe to call more than once.
func (r *Renderer) Shutdown() {
	if r.slots == nil {
		return
	}
	r.gate.Release()
	r.slots.Shutdown()
	r.draw.Shutdown()
	r.slots, r.gate, r.draw = nil, nil, nil
	r.logger.Info("renderer shut down", zap.Uint64("frames", r.frame))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
