package guistream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
	"github.com/irfansharif/guistream/gpu/gputest"
)

func testParams() drawlist.FrameParams {
	return drawlist.FrameParams{
		DisplaySize:      drawlist.Vec2{X: 800, Y: 600},
		FramebufferScale: drawlist.Vec2{X: 1, Y: 1},
	}
}

// mesh returns nv vertices and ni indices cycling through them.
func mesh(nv, ni int) ([]drawlist.Vertex, []drawlist.Index) {
	vs := make([]drawlist.Vertex, nv)
	for i := range vs {
		vs[i].Pos = drawlist.Vec2{X: float32(i), Y: float32(i)}
	}
	is := make([]drawlist.Index, ni)
	for i := range is {
		is[i] = drawlist.Index(i % nv)
	}
	return vs, is
}

func newRenderer(t *testing.T, dev *gputest.Device, v, i int, opts ...Option) (*Renderer, *drawlist.Context) {
	t.Helper()
	ui := drawlist.NewContext()
	r := New(dev, opts...)
	require.NoError(t, r.Initialize(ui, v, i))
	t.Cleanup(r.Shutdown)
	return r, ui
}

// runFrame drives one full frame, building geometry with build.
func runFrame(t *testing.T, r *Renderer, ui *drawlist.Context, build func()) (FrameResult, SyncResult) {
	t.Helper()
	require.NoError(t, r.BeginFrame(ui, testParams()))
	if build != nil {
		build()
	}
	res, err := r.RenderFrame(ui)
	require.NoError(t, err)
	sync, err := r.SynchronizeFrame()
	require.NoError(t, err)
	return res, sync
}

func rects(ui *drawlist.Context, n int) func() {
	return func() {
		l := ui.NewList()
		for i := 0; i < n; i++ {
			l.AddRectFilled(drawlist.Vec2{X: float32(i)}, drawlist.Vec2{X: float32(i + 10), Y: 10}, 0xffffffff)
		}
	}
}

func TestActiveSlotAlternates(t *testing.T) {
	r, ui := newRenderer(t, gputest.New(), 256, 256)

	for n := 0; n < 10; n++ {
		assert.Equal(t, n%2, r.ActiveSlot(), "frame %d", n)
		assert.Equal(t, uint64(n), r.Frame())

		res, sync := runFrame(t, r, ui, rects(ui, 2))
		assert.Equal(t, n%2, res.Slot)
		assert.Equal(t, n%2, sync.Armed)
		assert.Equal(t, 1-n%2, sync.Waited)
	}
}

func TestWaitBeforeWrite(t *testing.T) {
	dev := gputest.New()
	r, ui := newRenderer(t, dev, 256, 256)
	dev.Reset()

	for n := 0; n < 8; n++ {
		runFrame(t, r, ui, rects(ui, 3))
	}

	// Every pass drawing from a slot must come after the wait on the fence
	// armed when that slot was last drawn from.
	armed := make(map[gpu.VertexArray]gpu.Fence)
	waited := make(map[gpu.Fence]bool)
	var lastPass gpu.VertexArray
	passes := 0
	for _, e := range dev.Events {
		switch e.Op {
		case gputest.OpBeginPass:
			if f, ok := armed[e.VertexArray]; ok {
				assert.True(t, waited[f], "pass %d drew from a slot before waiting on fence %d", passes, f)
			}
			lastPass = e.VertexArray
			passes++
		case gputest.OpInsertFence:
			armed[lastPass] = e.Fence
		case gputest.OpWaitFence:
			waited[e.Fence] = true
		}
	}
	assert.Equal(t, 8, passes)
	assert.Len(t, armed, 2)
	// Frame 0 waits on slot 1, which has no fence yet.
	assert.Len(t, dev.Ops(gputest.OpWaitFence), 7)
}

func TestWriteRefusedWhileDeviceOwned(t *testing.T) {
	dev := gputest.New()
	dev.HoldFences = true
	r, ui := newRenderer(t, dev, 256, 256)

	// Frame 0 draws from slot 0; its fence stays unsignaled.
	runFrame(t, r, ui, rects(ui, 2))
	require.Equal(t, 1, r.ActiveSlot())
	slot := r.slots.Slot(0)
	require.False(t, slot.HostOwned())
	before := append([]drawlist.Vertex(nil), slot.Vertices.Contents(8)...)
	draws := len(dev.Draws)

	// Go back to slot 0 without the wait and acquire SynchronizeFrame does.
	r.active = 0
	require.NoError(t, r.BeginFrame(ui, testParams()))
	l := ui.NewList()
	l.AddRectFilled(drawlist.Vec2{X: 100}, drawlist.Vec2{X: 200, Y: 50}, 0xff00ff00)
	res, err := r.RenderFrame(ui)
	require.ErrorIs(t, err, ErrDeviceOwned)
	assert.True(t, res.Dropped)
	assert.Equal(t, before, slot.Vertices.Contents(8))
	assert.Len(t, dev.Draws, draws)
	// Slot 0's fence was never waited on.
	assert.Empty(t, dev.Ops(gputest.OpWaitFence))

	_, err = r.SynchronizeFrame()
	require.NoError(t, err)
}

func TestEndToEndOverflow(t *testing.T) {
	dev := gputest.New()
	r, ui := newRenderer(t, dev, 1000, 1500)

	addLists := func(sizes ...[2]int) func() {
		return func() {
			for _, s := range sizes {
				vs, is := mesh(s[0], s[1])
				ui.NewList().AddMesh(vs, is)
			}
		}
	}

	res, _ := runFrame(t, r, ui, addLists([2]int{400, 600}, [2]int{500, 700}))
	assert.Equal(t, 900, res.Vertices)
	assert.Equal(t, 1300, res.Indices)
	assert.Equal(t, 2, res.DrawCalls)
	require.Len(t, dev.Draws, 2)
	assert.Equal(t, gputest.Draw{
		Count: 700, FirstIndex: 600, BaseVertex: 400,
		Texture:     r.FontTexture(),
		Scissor:     gpu.Scissor{W: 800, H: 600},
		VertexArray: dev.Draws[0].VertexArray,
	}, dev.Draws[1])

	dev.Reset()
	require.NoError(t, r.BeginFrame(ui, testParams()))
	addLists([2]int{400, 600}, [2]int{500, 700}, [2]int{200, 300})()
	res, err := r.RenderFrame(ui)
	var oerr *OverflowError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "vertex", oerr.Buffer)
	assert.Equal(t, 100, oerr.Excess())
	assert.True(t, res.Dropped)
	assert.Zero(t, res.DrawCalls)
	assert.Empty(t, dev.Draws)
	assert.Empty(t, dev.Ops(gputest.OpBeginPass))

	// The dropped frame still synchronizes and the next one draws.
	_, err = r.SynchronizeFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Stats().Overflows)

	res, _ = runFrame(t, r, ui, addLists([2]int{400, 600}))
	assert.Equal(t, 1, res.DrawCalls)
	assert.Equal(t, 900, r.Stats().MaxVertexCount)
}

func TestSyncTimeoutIsReported(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dev := gputest.New()
	dev.HoldFences = true
	r, ui := newRenderer(t, dev, 256, 256,
		WithSyncTimeout(2*time.Millisecond),
		WithLogger(zap.New(core)),
	)
	assert.Equal(t, 2*time.Millisecond, r.SyncTimeout())

	// Frame 0 waits on slot 1, which has never been drawn from.
	_, sync := runFrame(t, r, ui, rects(ui, 1))
	assert.False(t, sync.TimedOut)

	// Frame 1 waits on slot 0's fence, which the device never signals.
	_, sync = runFrame(t, r, ui, rects(ui, 1))
	assert.True(t, sync.TimedOut)
	assert.Equal(t, gpu.WaitTimedOut, sync.Status)
	assert.Equal(t, 0, sync.Waited)

	s := r.Stats()
	assert.True(t, s.SyncTimedOut)
	assert.Equal(t, uint64(1), s.SyncTimeouts)
	assert.Equal(t, 2*time.Millisecond, s.SyncTimeout)
	assert.Equal(t, 1, logs.FilterMessageSnippet("fence wait").Len())

	// The renderer proceeds into the slot regardless.
	res, _ := runFrame(t, r, ui, rects(ui, 1))
	assert.Equal(t, 0, res.Slot)
	assert.Equal(t, 1, res.DrawCalls)

	r.ConfigureSyncTimeout(time.Second)
	assert.Equal(t, time.Second, r.SyncTimeout())
	// Reported before the next wait uses it.
	assert.Equal(t, time.Second, r.Stats().SyncTimeout)
	dev.Signal()
	_, sync = runFrame(t, r, ui, rects(ui, 1))
	assert.False(t, sync.TimedOut)
	assert.Equal(t, time.Second, r.Stats().SyncTimeout)
}

func TestFrameSequenceErrors(t *testing.T) {
	ui := drawlist.NewContext()
	r := New(gputest.New())

	require.ErrorIs(t, r.BeginFrame(ui, testParams()), ErrNotInitialized)
	_, err := r.RenderFrame(ui)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = r.SynchronizeFrame()
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, r.Initialize(ui, 64, 64))
	defer r.Shutdown()
	require.ErrorIs(t, r.Initialize(ui, 64, 64), ErrFrameSequence)

	_, err = r.RenderFrame(ui)
	require.ErrorIs(t, err, ErrFrameSequence)
	_, err = r.SynchronizeFrame()
	require.ErrorIs(t, err, ErrFrameSequence)

	require.NoError(t, r.BeginFrame(ui, testParams()))
	require.ErrorIs(t, r.BeginFrame(ui, testParams()), ErrFrameSequence)

	_, err = r.RenderFrame(ui)
	require.NoError(t, err)
	_, err = r.RenderFrame(ui)
	require.ErrorIs(t, err, ErrFrameSequence)
	require.ErrorIs(t, r.BeginFrame(ui, testParams()), ErrFrameSequence)

	_, err = r.SynchronizeFrame()
	require.NoError(t, err)
	_, err = r.SynchronizeFrame()
	require.ErrorIs(t, err, ErrFrameSequence)
	assert.Equal(t, uint64(1), r.Frame())
}

func TestMalformedCommandDropsFrame(t *testing.T) {
	dev := gputest.New()
	r, ui := newRenderer(t, dev, 64, 64)
	dev.Reset()

	require.NoError(t, r.BeginFrame(ui, testParams()))
	l := ui.NewList()
	l.AddRectFilled(drawlist.Vec2{}, drawlist.Vec2{X: 1, Y: 1}, 0)
	l.Commands[0].ElemCount = 12
	_, err := r.RenderFrame(ui)
	require.ErrorIs(t, err, ErrMalformedCommand)
	assert.Empty(t, dev.Draws)
	_, err = r.SynchronizeFrame()
	require.NoError(t, err)
}

func TestCullingAndScissor(t *testing.T) {
	dev := gputest.New()
	r, ui := newRenderer(t, dev, 64, 64)

	res, _ := runFrame(t, r, ui, func() {
		l := ui.NewList()
		l.PushClipRect(drawlist.Rect{
			Min: drawlist.Vec2{X: -50, Y: -50},
			Max: drawlist.Vec2{X: -10, Y: -10},
		}, false)
		l.AddRectFilled(drawlist.Vec2{X: -40, Y: -40}, drawlist.Vec2{X: -20, Y: -20}, 0)
		l.PopClipRect()
		l.PushClipRect(drawlist.Rect{Max: drawlist.Vec2{X: 100, Y: 100}}, false)
		l.AddRectFilled(drawlist.Vec2{}, drawlist.Vec2{X: 50, Y: 50}, 0)
		l.PopClipRect()
	})
	assert.Equal(t, 1, res.Culled)
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, gpu.Scissor{X: 0, Y: 500, W: 100, H: 100}, dev.Draws[0].Scissor)
	assert.Equal(t, 6, dev.Draws[0].FirstIndex)

	dev.Reset()
	r2, ui2 := newRenderer(t, dev, 64, 64, WithClipOrigin(gpu.UpperLeft))
	runFrame(t, r2, ui2, func() {
		l := ui2.NewList()
		l.PushClipRect(drawlist.Rect{Max: drawlist.Vec2{X: 100, Y: 100}}, false)
		l.AddRectFilled(drawlist.Vec2{}, drawlist.Vec2{X: 50, Y: 50}, 0)
	})
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, gpu.Scissor{X: 0, Y: 500, W: 100, H: 100}, dev.Draws[0].Scissor)

	dev.Reset()
	r3, ui3 := newRenderer(t, dev, 64, 64, WithClipOrigin(gpu.TopLeft))
	runFrame(t, r3, ui3, func() {
		l := ui3.NewList()
		l.PushClipRect(drawlist.Rect{Max: drawlist.Vec2{X: 100, Y: 100}}, false)
		l.AddRectFilled(drawlist.Vec2{}, drawlist.Vec2{X: 50, Y: 50}, 0)
	})
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, gpu.Scissor{X: 0, Y: 0, W: 100, H: 100}, dev.Draws[0].Scissor)
}

func TestShutdownReleasesEverything(t *testing.T) {
	dev := gputest.New()
	ui := drawlist.NewContext()
	r := New(dev)
	require.NoError(t, r.Initialize(ui, 128, 128))
	for n := 0; n < 3; n++ {
		runFrame(t, r, ui, rects(ui, 2))
	}

	buffers, arrays, fences, programs, textures := dev.Live()
	assert.Equal(t, 4, buffers)
	assert.Equal(t, 2, arrays)
	assert.Equal(t, 2, fences)
	assert.Equal(t, 1, programs)
	assert.Equal(t, 1, textures)

	r.Shutdown()
	r.Shutdown()
	buffers, arrays, fences, programs, textures = dev.Live()
	assert.Zero(t, buffers+arrays+fences+programs+textures)

	require.ErrorIs(t, r.BeginFrame(ui, testParams()), ErrNotInitialized)
}

func TestInitializeProgramFailure(t *testing.T) {
	dev := gputest.New()
	dev.ProgramLog = "ERROR: 0:12: 'Frag_UV' : undeclared identifier"
	r := New(dev)

	err := r.Initialize(drawlist.NewContext(), 64, 64)
	var aerr *ResourceAllocationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "shader program", aerr.Resource)
	assert.Equal(t, dev.ProgramLog, aerr.Log)
	assert.Contains(t, err.Error(), "undeclared identifier")

	buffers, arrays, fences, programs, textures := dev.Live()
	assert.Zero(t, buffers+arrays+fences+programs+textures)
}

func TestInitializeBufferFailure(t *testing.T) {
	dev := gputest.New()
	dev.FailBufferAfter = 3
	r := New(dev)

	err := r.Initialize(drawlist.NewContext(), 64, 64)
	var aerr *ResourceAllocationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "slot 1 index buffer", aerr.Resource)
	assert.Empty(t, aerr.Log)
	assert.True(t, errors.Is(err, gpu.ErrUnsupported))

	buffers, arrays, fences, programs, textures := dev.Live()
	assert.Zero(t, buffers+arrays+fences+programs+textures)

	// A failed Initialize can be retried.
	dev.FailBufferAfter = -1
	require.NoError(t, r.Initialize(drawlist.NewContext(), 64, 64))
	r.Shutdown()
}

func TestAccessors(t *testing.T) {
	r, ui := newRenderer(t, gputest.New(), 256, 256)
	runFrame(t, r, ui, rects(ui, 5))

	assert.Equal(t, 20, r.VertexCount())
	assert.Equal(t, 30, r.IndexCount())
	assert.Equal(t, r.last.DrawTime, r.DrawTime())
	assert.GreaterOrEqual(t, r.DrawTime(), r.MeanDrawTime())
	assert.Equal(t, time.Duration(0), r.SyncWaitTime())

	s := r.Stats()
	assert.Equal(t, 256, s.VertexCapacity)
	assert.Equal(t, 1, s.DrawCalls)
	assert.Equal(t, uint64(1), s.Frames)
	assert.Equal(t, DefaultSyncTimeout, s.SyncTimeout)
}

func TestSharedTracker(t *testing.T) {
	tr := NewTracker()
	r, ui := newRenderer(t, gputest.New(), 64, 64, WithTracker(tr))
	runFrame(t, r, ui, rects(ui, 1))
	assert.Same(t, tr, r.Tracker())
	assert.Equal(t, uint64(1), tr.Snapshot().Frames)
}

func TestMeasure(t *testing.T) {
	ui := drawlist.NewContext()
	sample := func(n int) *drawlist.DrawData {
		require.NoError(t, ui.NewFrame(testParams()))
		rects(ui, n)()
		d, err := ui.Render()
		require.NoError(t, err)
		return d
	}

	v, i := Measure(1.5, sample(10))
	assert.Equal(t, 60, v)
	assert.Equal(t, 90, i)

	v, i = Measure(0, nil)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, i)
}

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	r := New(gputest.New())
	require.NoError(t, r.Initialize(nil, 16, 16))
	r.Shutdown()
	assert.Equal(t, 1, logs.FilterMessage("renderer initialized").Len())
	assert.Equal(t, 1, logs.FilterMessage("renderer shut down").Len())
	assert.Equal(t, 1, logs.FilterMessage("geometry slots allocated").Len())
}
