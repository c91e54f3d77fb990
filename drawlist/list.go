package drawlist

import (
	"fmt"
	"math"
)

// List holds one list's geometry: vertices, indices into those vertices, and
// the commands that slice the index array into clip/texture runs.
//
// The builder methods append primitives to the current command and open a new
// command whenever the clip rectangle or texture changes.
type List struct {
	Vertices []Vertex
	Indices  []Index
	Commands []Command

	atlas     *FontAtlas
	clipStack []Rect
	texStack  []TextureID
}

// NewList returns an empty list that samples solid fills and text from atlas.
// The initial clip rectangle is clip.
func NewList(atlas *FontAtlas, clip Rect) *List {
	l := &List{atlas: atlas}
	l.reset(clip)
	return l
}

func (l *List) reset(clip Rect) {
	l.Vertices = l.Vertices[:0]
	l.Indices = l.Indices[:0]
	l.Commands = l.Commands[:0]
	l.clipStack = append(l.clipStack[:0], clip)
	l.texStack = append(l.texStack[:0], l.atlas.TexID)
}

// ClipRect returns the current clip rectangle.
func (l *List) ClipRect() Rect { return l.clipStack[len(l.clipStack)-1] }

// Texture returns the current texture.
func (l *List) Texture() TextureID { return l.texStack[len(l.texStack)-1] }

// PushClipRect makes r the clip rectangle for subsequent primitives. When
// intersect is set r is first intersected with the current clip rectangle.
func (l *List) PushClipRect(r Rect, intersect bool) {
	if intersect {
		cur := l.ClipRect()
		r = Rect{
			Min: Vec2{X: max(r.Min.X, cur.Min.X), Y: max(r.Min.Y, cur.Min.Y)},
			Max: Vec2{X: min(r.Max.X, cur.Max.X), Y: min(r.Max.Y, cur.Max.Y)},
		}
	}
	l.clipStack = append(l.clipStack, r)
}

// PopClipRect restores the previous clip rectangle. Popping the initial clip
// rectangle panics.
func (l *List) PopClipRect() {
	if len(l.clipStack) == 1 {
		panic("drawlist: PopClipRect without matching PushClipRect")
	}
	l.clipStack = l.clipStack[:len(l.clipStack)-1]
}

// PushTexture makes id the texture for subsequent primitives.
func (l *List) PushTexture(id TextureID) {
	l.texStack = append(l.texStack, id)
}

// PopTexture restores the previous texture.
func (l *List) PopTexture() {
	if len(l.texStack) == 1 {
		panic("drawlist: PopTexture without matching PushTexture")
	}
	l.texStack = l.texStack[:len(l.texStack)-1]
}

// current returns the command primitives are appended to, opening a new one if
// the clip rectangle or texture changed since the last command.
func (l *List) current() *Command {
	clip, tex := l.ClipRect(), l.Texture()
	if n := len(l.Commands); n > 0 {
		last := &l.Commands[n-1]
		if last.ClipRect == clip && last.TextureID == tex {
			return last
		}
		if last.ElemCount == 0 {
			last.ClipRect, last.TextureID = clip, tex
			return last
		}
	}
	l.Commands = append(l.Commands, Command{
		ClipRect:    clip,
		IndexOffset: len(l.Indices),
		TextureID:   tex,
	})
	return &l.Commands[len(l.Commands)-1]
}

// reserve checks that vtxCount more vertices remain addressable by 16-bit
// indices and returns the index of the first new vertex. Exceeding the limit
// is a programming error in the producer.
func (l *List) reserve(vtxCount int) Index {
	base := len(l.Vertices)
	if base+vtxCount > MaxListVertices {
		panic(fmt.Sprintf("drawlist: list exceeds %d vertices (%d + %d)", MaxListVertices, base, vtxCount))
	}
	return Index(base)
}

// AddRectFilled adds a solid rectangle spanning min..max.
func (l *List) AddRectFilled(min, max Vec2, col uint32) {
	uv := l.atlas.WhiteUV()
	l.addQuad(min, max, uv, uv, col)
}

// AddRect adds a rectangle outline of the given thickness, drawn inside the
// min..max bounds.
func (l *List) AddRect(min, max Vec2, col uint32, thickness float32) {
	if thickness <= 0 {
		return
	}
	l.AddRectFilled(min, Vec2{X: max.X, Y: min.Y + thickness}, col)
	l.AddRectFilled(Vec2{X: min.X, Y: max.Y - thickness}, max, col)
	l.AddRectFilled(Vec2{X: min.X, Y: min.Y + thickness}, Vec2{X: min.X + thickness, Y: max.Y - thickness}, col)
	l.AddRectFilled(Vec2{X: max.X - thickness, Y: min.Y + thickness}, Vec2{X: max.X, Y: max.Y - thickness}, col)
}

// AddImage adds a textured rectangle sampling uvMin..uvMax of id.
func (l *List) AddImage(id TextureID, min, max, uvMin, uvMax Vec2, col uint32) {
	l.PushTexture(id)
	l.addQuad(min, max, uvMin, uvMax, col)
	l.PopTexture()
}

func (l *List) addQuad(min, max, uvMin, uvMax Vec2, col uint32) {
	cmd := l.current()
	base := l.reserve(4)
	l.Vertices = append(l.Vertices,
		Vertex{Pos: min, UV: uvMin, Col: col},
		Vertex{Pos: Vec2{X: max.X, Y: min.Y}, UV: Vec2{X: uvMax.X, Y: uvMin.Y}, Col: col},
		Vertex{Pos: max, UV: uvMax, Col: col},
		Vertex{Pos: Vec2{X: min.X, Y: max.Y}, UV: Vec2{X: uvMin.X, Y: uvMax.Y}, Col: col},
	)
	l.Indices = append(l.Indices, base, base+1, base+2, base, base+2, base+3)
	cmd.ElemCount += 6
}

// AddTriangleFilled adds a solid triangle.
func (l *List) AddTriangleFilled(a, b, c Vec2, col uint32) {
	cmd := l.current()
	base := l.reserve(3)
	uv := l.atlas.WhiteUV()
	l.Vertices = append(l.Vertices,
		Vertex{Pos: a, UV: uv, Col: col},
		Vertex{Pos: b, UV: uv, Col: col},
		Vertex{Pos: c, UV: uv, Col: col},
	)
	l.Indices = append(l.Indices, base, base+1, base+2)
	cmd.ElemCount += 3
}

// AddMesh appends prebuilt geometry to the current command. Indices are
// relative to the first of the appended vertices; an index past them panics.
func (l *List) AddMesh(vertices []Vertex, indices []Index) {
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			panic(fmt.Sprintf("drawlist: mesh index %d out of %d vertices", idx, len(vertices)))
		}
	}
	cmd := l.current()
	base := l.reserve(len(vertices))
	l.Vertices = append(l.Vertices, vertices...)
	for _, idx := range indices {
		l.Indices = append(l.Indices, base+idx)
	}
	cmd.ElemCount += len(indices)
}

// AddPolyFilled adds a solid simple polygon (convex or concave, without
// holes), triangulated with earcut.
func (l *List) AddPolyFilled(points []Vec2, col uint32) error {
	tris, err := earClip(points)
	if err != nil {
		return err
	}
	if len(tris) == 0 {
		return nil
	}

	cmd := l.current()
	base := l.reserve(len(points))
	uv := l.atlas.WhiteUV()
	for _, p := range points {
		l.Vertices = append(l.Vertices, Vertex{Pos: p, UV: uv, Col: col})
	}
	for _, idx := range tris {
		l.Indices = append(l.Indices, base+Index(idx))
	}
	cmd.ElemCount += len(tris)
	return nil
}

// AddCircleFilled adds a solid circle approximated by segments triangles.
func (l *List) AddCircleFilled(center Vec2, radius float32, col uint32, segments int) {
	if segments < 3 || radius <= 0 {
		return
	}
	cmd := l.current()
	base := l.reserve(segments + 1)
	uv := l.atlas.WhiteUV()
	l.Vertices = append(l.Vertices, Vertex{Pos: center, UV: uv, Col: col})
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		l.Vertices = append(l.Vertices, Vertex{
			Pos: Vec2{
				X: center.X + radius*float32(math.Cos(a)),
				Y: center.Y + radius*float32(math.Sin(a)),
			},
			UV:  uv,
			Col: col,
		})
	}
	for i := 0; i < segments; i++ {
		next := (i+1)%segments + 1
		l.Indices = append(l.Indices, base, base+Index(i+1), base+Index(next))
	}
	cmd.ElemCount += segments * 3
}

// AddText adds a single line of text with its top-left corner at pos and
// returns the advance width. Runes outside the face render as '?'.
func (l *List) AddText(pos Vec2, col uint32, text string) float32 {
	face := l.atlas.face
	x := pos.X
	for _, r := range text {
		if r == ' ' {
			x += float32(face.Advance)
			continue
		}
		uv, ok := l.atlas.glyph(r)
		if ok {
			min := Vec2{X: x + float32(face.Left), Y: pos.Y}
			max := Vec2{X: min.X + float32(face.Width), Y: pos.Y + float32(face.Height)}
			l.addQuad(min, max, uv.Min, uv.Max, col)
		}
		x += float32(face.Advance)
	}
	return x - pos.X
}

// TextSize returns the extent of a single line of text.
func (l *List) TextSize(text string) Vec2 {
	n := 0
	for range text {
		n++
	}
	return Vec2{X: float32(n) * l.atlas.Advance(), Y: l.atlas.LineHeight()}
}

// trim drops a trailing empty command left behind by a clip or texture
// change that no primitive followed.
func (l *List) trim() {
	if n := len(l.Commands); n > 0 && l.Commands[n-1].ElemCount == 0 {
		l.Commands = l.Commands[:n-1]
	}
}
