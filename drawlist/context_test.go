package drawlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() FrameParams {
	return FrameParams{DisplaySize: Vec2{X: 800, Y: 600}}
}

func TestContextFrameLifecycle(t *testing.T) {
	ctx := NewContext()

	_, err := ctx.Render()
	assert.ErrorIs(t, err, ErrFrameState)

	require.NoError(t, ctx.NewFrame(testParams()))
	assert.True(t, ctx.InFrame())
	assert.ErrorIs(t, ctx.NewFrame(testParams()), ErrFrameState)

	a := ctx.NewList()
	a.AddRectFilled(Vec2{}, Vec2{X: 10, Y: 10}, 0)
	ctx.NewList() // left empty
	b := ctx.NewList()
	b.AddTriangleFilled(Vec2{}, Vec2{X: 1}, Vec2{Y: 1}, 0)

	data, err := ctx.Render()
	require.NoError(t, err)
	assert.False(t, ctx.InFrame())
	assert.Equal(t, uint64(1), ctx.Frame())

	require.Len(t, data.Lists, 2, "empty lists are omitted")
	assert.Same(t, a, data.Lists[0])
	assert.Same(t, b, data.Lists[1])
	assert.Equal(t, 7, data.TotalVertices())
	assert.Equal(t, 9, data.TotalIndices())
	assert.Equal(t, Vec2{X: 1, Y: 1}, data.FramebufferScale, "zero scale defaults to 1")

	w, h := data.FramebufferSize()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestContextReusesLists(t *testing.T) {
	ctx := NewContext()

	require.NoError(t, ctx.NewFrame(testParams()))
	first := ctx.NewList()
	first.AddRectFilled(Vec2{}, Vec2{X: 1, Y: 1}, 0)
	_, err := ctx.Render()
	require.NoError(t, err)

	require.NoError(t, ctx.NewFrame(testParams()))
	second := ctx.NewList()
	assert.Same(t, first, second)
	assert.Empty(t, second.Vertices, "geometry does not persist across frames")
	assert.Empty(t, second.Commands)
}

func TestContextNewListClipsToDisplay(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.NewFrame(FrameParams{
		DisplayPos:       Vec2{X: 100, Y: 50},
		DisplaySize:      Vec2{X: 640, Y: 480},
		FramebufferScale: Vec2{X: 2, Y: 2},
	}))
	l := ctx.NewList()
	assert.Equal(t, Rect{Min: Vec2{X: 100, Y: 50}, Max: Vec2{X: 740, Y: 530}}, l.ClipRect())

	data, err := ctx.Render()
	require.NoError(t, err)
	w, h := data.FramebufferSize()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 960, h)
}

func TestContextPublishesAtlasTexture(t *testing.T) {
	ctx := NewContext()
	ctx.FontAtlas().TexID = TextureID(3)

	require.NoError(t, ctx.NewFrame(testParams()))
	l := ctx.NewList()
	l.AddText(Vec2{}, 0, "hi")
	data, err := ctx.Render()
	require.NoError(t, err)
	assert.Equal(t, TextureID(3), data.Lists[0].Commands[0].TextureID)
}

func TestNewListOutsideFramePanics(t *testing.T) {
	assert.Panics(t, func() { NewContext().NewList() })
}
