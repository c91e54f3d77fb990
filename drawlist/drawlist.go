// Package drawlist is the data model shared between an immediate-mode UI and
// the renderer. Once per frame the UI produces a DrawData: an ordered sequence
// of Lists, each owning a vertex array, an index array and a sequence of draw
// Commands that reference ranges of that index array.
//
// The package also carries a minimal producer (Context and the List builder
// methods) that is enough to build panels, polygons and text for demos and
// tests. It is not a widget toolkit.
package drawlist

import (
	"unsafe"
)

// TextureID is an opaque handle to a device texture. The renderer binds it
// as-is for every command that references it.
type TextureID uintptr

// Index is the element type of a List's index array. Indices are relative to
// the start of their own List's vertex array.
type Index uint16

// MaxListVertices is the number of vertices a single List can address with
// its 16-bit indices.
const MaxListVertices = 1 << 16

// Vec2 is a 2D vector in display (virtual pixel) coordinates.
type Vec2 struct {
	X, Y float32
}

// Rect is an axis-aligned rectangle given by its min and max corners.
type Rect struct {
	Min, Max Vec2
}

// Vertex is the 20-byte interleaved vertex layout uploaded to the device:
// position (2×f32), texture coordinate (2×f32) and a packed RGBA8 color.
type Vertex struct {
	Pos Vec2
	UV  Vec2
	Col uint32
}

// Byte sizes and offsets of the device-visible layouts.
const (
	VertexSize      = int(unsafe.Sizeof(Vertex{}))
	IndexSize       = int(unsafe.Sizeof(Index(0)))
	VertexPosOffset = int(unsafe.Offsetof(Vertex{}.Pos))
	VertexUVOffset  = int(unsafe.Offsetof(Vertex{}.UV))
	VertexColOffset = int(unsafe.Offsetof(Vertex{}.Col))
)

// Command is one draw command within a List: ElemCount indices starting at
// IndexOffset (relative to the List's index array), clipped to ClipRect and
// sampled from TextureID.
type Command struct {
	ClipRect    Rect
	ElemCount   int
	IndexOffset int
	TextureID   TextureID
}

// FrameParams are the global per-frame display parameters.
type FrameParams struct {
	DisplayPos       Vec2 // top-left of the displayed area, (0,0) for a single viewport
	DisplaySize      Vec2 // size of the displayed area in virtual pixels
	FramebufferScale Vec2 // framebuffer pixels per virtual pixel, (2,2) on most high-density displays
}

// DrawData is one frame's finalized output: the lists in submission order and
// the frame parameters they were built against.
type DrawData struct {
	Lists []*List
	FrameParams
}

// TotalVertices returns the number of vertices across all lists.
func (d *DrawData) TotalVertices() int {
	n := 0
	for _, l := range d.Lists {
		n += len(l.Vertices)
	}
	return n
}

// TotalIndices returns the number of indices across all lists.
func (d *DrawData) TotalIndices() int {
	n := 0
	for _, l := range d.Lists {
		n += len(l.Indices)
	}
	return n
}

// FramebufferSize returns the framebuffer dimensions in device pixels.
func (d *DrawData) FramebufferSize() (w, h int) {
	return int(d.DisplaySize.X * d.FramebufferScale.X), int(d.DisplaySize.Y * d.FramebufferScale.Y)
}
