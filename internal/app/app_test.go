package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/irfansharif/guistream"
	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu/gputest"
	"github.com/irfansharif/guistream/internal/geom"
)

func testParams() drawlist.FrameParams {
	return drawlist.FrameParams{
		DisplaySize:      drawlist.Vec2{X: 800, Y: 600},
		FramebufferScale: drawlist.Vec2{X: 1, Y: 1},
	}
}

func newTestApp(t *testing.T, logger *zap.Logger) (*App, *gputest.Device) {
	t.Helper()
	dev := gputest.New()
	r := guistream.New(dev)
	t.Cleanup(r.Shutdown)
	a := NewApp(r, drawlist.NewContext(), NewView(800, 600), 1, logger)
	a.ShowStats = false
	return a, dev
}

func TestFrameDrawsPanels(t *testing.T) {
	a, dev := newTestApp(t, nil)
	for _, kind := range []Kind{KindBars, KindPolygon, KindCircles, KindText} {
		p := a.CreatePanel(400, 300, nil)
		p.Kind = kind
	}

	v, i, err := a.MeasureCapacity(testParams())
	require.NoError(t, err)
	require.NoError(t, a.Renderer.Initialize(a.UI, v, i))

	for n := 0; n < 4; n++ {
		res, err := a.Frame(testParams())
		require.NoError(t, err)
		assert.False(t, res.Dropped)
		assert.Greater(t, res.DrawCalls, 0)
		assert.Zero(t, res.Culled)
	}
	assert.NotEmpty(t, dev.Draws)
}

func TestOffscreenPanelCulled(t *testing.T) {
	a, dev := newTestApp(t, nil)
	a.CreatePanel(5000, 5000, nil)
	require.NoError(t, a.Renderer.Initialize(a.UI, 4096, 8192))

	res, err := a.Frame(testParams())
	require.NoError(t, err)
	assert.Zero(t, res.DrawCalls)
	assert.Greater(t, res.Culled, 0)
	assert.Empty(t, dev.Draws)
}

func TestFrameGrowsOnOverflow(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a, dev := newTestApp(t, zap.New(core))
	items := 8
	p := a.CreatePanel(400, 300, &items)
	p.Kind = KindBars
	require.NoError(t, a.Renderer.Initialize(a.UI, 4, 6))

	res, err := a.Frame(testParams())
	require.NoError(t, err)
	assert.True(t, res.Dropped)
	assert.Equal(t, 1, logs.FilterMessage("frame dropped, growing geometry slots").Len())

	s := a.Renderer.Stats()
	assert.Greater(t, s.VertexCapacity, 4)

	var drawn bool
	for n := 0; n < 8 && !drawn; n++ {
		res, err = a.Frame(testParams())
		require.NoError(t, err)
		drawn = !res.Dropped
	}
	assert.True(t, drawn)
	assert.Greater(t, res.DrawCalls, 0)

	// Old slots were released on every re-initialization.
	buffers, arrays, _, programs, textures := dev.Live()
	assert.Equal(t, 4, buffers)
	assert.Equal(t, 2, arrays)
	assert.Equal(t, 1, programs)
	assert.Equal(t, 1, textures)
}

func TestStatsOverlay(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.ShowStats = true
	require.NoError(t, a.Renderer.Initialize(a.UI, 8192, 16384))

	res, err := a.Frame(testParams())
	require.NoError(t, err)
	assert.Greater(t, res.Vertices, 0)
	assert.Greater(t, res.DrawCalls, 0)
}

func TestRegenerateClosest(t *testing.T) {
	a, _ := newTestApp(t, nil)
	near := a.CreatePanel(100, 100, nil)
	far := a.CreatePanel(700, 500, nil)
	nearSeed, farSeed := near.Seed, far.Seed

	items := 3
	a.RegenerateClosest(90, 90, &items, true)
	assert.Equal(t, nearSeed+1, near.Seed)
	assert.Equal(t, &items, near.Items)
	assert.Equal(t, farSeed, far.Seed)

	a.RegenerateClosest(90, 90, nil, false)
	assert.Equal(t, nearSeed, near.Seed)
	assert.Equal(t, &items, near.Items)
}

func TestStar(t *testing.T) {
	points := star(0, 0, 10, 5)
	require.Len(t, points, 10)
	assert.InDelta(t, 0, points[0].X, 1e-4)
	assert.InDelta(t, -10, points[0].Y, 1e-4)
}

func TestView(t *testing.T) {
	v := NewView(800, 600)
	p := geom.MakePoint(10, 20)
	assert.Equal(t, p, v.ToScreen(p))

	v.SetZoom(2)
	v.SetPan(30, -40)
	got := v.ToCanvas(v.ToScreen(p))
	assert.InDelta(t, p.X, got.X, 1e-9)
	assert.InDelta(t, p.Y, got.Y, 1e-9)

	r := v.RectToScreen(geom.MakeRect(0, 0, 10, 10))
	assert.Equal(t, 20.0, r.W)

	v.SetZoom(100)
	assert.Equal(t, maxZoom, v.Zoom)
	v.SetZoom(0)
	assert.Equal(t, minZoom, v.Zoom)

	v.ResetTo(geom.MakePoint(100, 100))
	assert.Equal(t, 1.0, v.Zoom)
	assert.Equal(t, geom.MakePoint(400, 300), v.ToScreen(geom.MakePoint(100, 100)))
}
