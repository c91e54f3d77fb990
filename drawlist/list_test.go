package drawlist

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullClip = Rect{Max: Vec2{X: 800, Y: 600}}

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, 20, VertexSize)
	assert.Equal(t, 2, IndexSize)
	assert.Equal(t, 0, VertexPosOffset)
	assert.Equal(t, 8, VertexUVOffset)
	assert.Equal(t, 16, VertexColOffset)
}

func TestAddRectFilled(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	l.AddRectFilled(Vec2{X: 10, Y: 10}, Vec2{X: 20, Y: 30}, RGBA(255, 0, 0, 255))

	require.Len(t, l.Vertices, 4)
	assert.Equal(t, []Index{0, 1, 2, 0, 2, 3}, l.Indices)
	require.Len(t, l.Commands, 1)
	assert.Equal(t, Command{ClipRect: fullClip, ElemCount: 6}, l.Commands[0])
	assert.Equal(t, Vec2{X: 20, Y: 30}, l.Vertices[2].Pos)
	for _, v := range l.Vertices {
		assert.Equal(t, l.atlas.WhiteUV(), v.UV)
	}
}

func TestCommandsSplitOnClipChange(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	col := RGBA(1, 2, 3, 4)

	l.AddRectFilled(Vec2{}, Vec2{X: 5, Y: 5}, col)
	l.AddRectFilled(Vec2{X: 5}, Vec2{X: 10, Y: 5}, col)

	inner := Rect{Min: Vec2{X: 100, Y: 100}, Max: Vec2{X: 200, Y: 200}}
	l.PushClipRect(inner, true)
	l.AddTriangleFilled(Vec2{X: 100, Y: 100}, Vec2{X: 150, Y: 100}, Vec2{X: 100, Y: 150}, col)
	l.PopClipRect()
	l.AddRectFilled(Vec2{X: 300}, Vec2{X: 310, Y: 10}, col)

	require.Len(t, l.Commands, 3)
	assert.Equal(t, Command{ClipRect: fullClip, ElemCount: 12, IndexOffset: 0}, l.Commands[0])
	assert.Equal(t, Command{ClipRect: inner, ElemCount: 3, IndexOffset: 12}, l.Commands[1])
	assert.Equal(t, Command{ClipRect: fullClip, ElemCount: 6, IndexOffset: 15}, l.Commands[2])

	// Commands exactly partition the index array.
	total := 0
	for _, cmd := range l.Commands {
		assert.Equal(t, total, cmd.IndexOffset)
		total += cmd.ElemCount
	}
	assert.Equal(t, len(l.Indices), total)
}

func TestPushClipRectIntersects(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	l.PushClipRect(Rect{Min: Vec2{X: -10, Y: 500}, Max: Vec2{X: 50, Y: 900}}, true)
	assert.Equal(t, Rect{Min: Vec2{X: 0, Y: 500}, Max: Vec2{X: 50, Y: 600}}, l.ClipRect())
	l.PopClipRect()
	assert.Equal(t, fullClip, l.ClipRect())
	assert.Panics(t, func() { l.PopClipRect() })
}

func TestCommandsSplitOnTextureChange(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	l.AddRectFilled(Vec2{}, Vec2{X: 1, Y: 1}, 0)
	l.AddImage(TextureID(7), Vec2{}, Vec2{X: 64, Y: 64}, Vec2{}, Vec2{X: 1, Y: 1}, 0)

	require.Len(t, l.Commands, 2)
	assert.Equal(t, TextureID(0), l.Commands[0].TextureID)
	assert.Equal(t, TextureID(7), l.Commands[1].TextureID)
	assert.Equal(t, 6, l.Commands[1].IndexOffset)
}

func TestAddPolyFilledConcave(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	// An L shape: concave, six corners, four triangles.
	poly := []Vec2{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10},
		{X: 10, Y: 10}, {X: 10, Y: 20}, {X: 0, Y: 20},
	}
	require.NoError(t, l.AddPolyFilled(poly, RGBA(0, 0, 0, 255)))

	assert.Len(t, l.Vertices, 6)
	assert.Len(t, l.Indices, 12)
	assert.Equal(t, 12, l.Commands[0].ElemCount)
	for _, idx := range l.Indices {
		assert.Less(t, int(idx), len(l.Vertices))
	}

	assert.Error(t, l.AddPolyFilled(poly[:2], 0))
}

func TestAddCircleFilled(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	l.AddCircleFilled(Vec2{X: 50, Y: 50}, 10, 0, 12)
	assert.Len(t, l.Vertices, 13)
	assert.Len(t, l.Indices, 36)

	l.AddCircleFilled(Vec2{}, 10, 0, 2)
	assert.Len(t, l.Vertices, 13, "degenerate circles add nothing")
}

func TestAddText(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	w := l.AddText(Vec2{X: 10, Y: 10}, RGBA(255, 255, 255, 255), "ab c")

	assert.Equal(t, 4*l.atlas.Advance(), w)
	assert.Len(t, l.Vertices, 3*4, "spaces produce no quads")
	assert.Equal(t, Vec2{X: w, Y: l.atlas.LineHeight()}, l.TextSize("ab c"))

	// Glyph quads sample inside the atlas.
	for _, v := range l.Vertices {
		assert.GreaterOrEqual(t, v.UV.Y, float32(0))
		assert.LessOrEqual(t, v.UV.Y, float32(1))
	}
}

func TestAddMesh(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	l.AddRectFilled(Vec2{}, Vec2{X: 1, Y: 1}, 0)
	l.AddMesh(make([]Vertex, 3), []Index{0, 1, 2, 2, 1, 0})

	require.Len(t, l.Commands, 1)
	assert.Equal(t, 12, l.Commands[0].ElemCount)
	assert.Equal(t, []Index{4, 5, 6, 6, 5, 4}, l.Indices[6:])
	assert.Panics(t, func() { l.AddMesh(make([]Vertex, 2), []Index{2}) })
}

func TestListVertexLimit(t *testing.T) {
	l := NewList(newFontAtlas(), fullClip)
	l.Vertices = make([]Vertex, MaxListVertices-3)
	assert.Panics(t, func() { l.AddRectFilled(Vec2{}, Vec2{X: 1, Y: 1}, 0) })
}

func TestFontAtlas(t *testing.T) {
	a := newFontAtlas()
	require.Equal(t, a.Width*a.Height*4, len(a.Pixels))

	// The white band is fully opaque.
	last := a.Pixels[len(a.Pixels)-4:]
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, last)

	uv, ok := a.glyph('A')
	require.True(t, ok)
	assert.Less(t, uv.Min.Y, uv.Max.Y)

	fallback, ok := a.glyph('\U0001F600')
	require.True(t, ok)
	question, _ := a.glyph('?')
	assert.Equal(t, question, fallback)
}

func TestColorPacking(t *testing.T) {
	col := RGBA(0x11, 0x22, 0x33, 0x44)
	assert.Equal(t, uint32(0x44332211), col)
	c := Unpack(col)
	assert.Equal(t, uint8(0x11), c.R)
	assert.Equal(t, uint8(0x44), c.A)

	red := ColorFrom(colorful.Color{R: 1}, 1)
	assert.Equal(t, RGBA(255, 0, 0, 255), red)
	assert.Equal(t, RGBA(0, 0, 255, 0), ColorFrom(colorful.Color{B: 1}, -3))
}
