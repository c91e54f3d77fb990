package drawlist

import (
	"errors"
)

// ErrFrameState is returned when frame operations are called out of order.
var ErrFrameState = errors.New("drawlist: frame operation out of order")

// Context is the explicit handle to one UI's per-frame state. Every frame
// operation takes it as an argument; there is no implicit current context.
//
// A Context is used from a single goroutine.
type Context struct {
	atlas  *FontAtlas
	params FrameParams

	lists   []*List // pooled across frames, lists[:used] belong to the current frame
	used    int
	inFrame bool
	frame   uint64

	data DrawData
}

// NewContext creates a context with its static font atlas built.
func NewContext() *Context {
	return &Context{atlas: newFontAtlas()}
}

// FontAtlas returns the context's static font atlas.
func (c *Context) FontAtlas() *FontAtlas { return c.atlas }

// Frame returns the number of frames rendered so far.
func (c *Context) Frame() uint64 { return c.frame }

// InFrame reports whether NewFrame was called without a matching Render.
func (c *Context) InFrame() bool { return c.inFrame }

// Params returns the parameters of the current (or last) frame.
func (c *Context) Params() FrameParams { return c.params }

// NewFrame starts building a frame against params. A zero FramebufferScale is
// treated as (1,1).
func (c *Context) NewFrame(params FrameParams) error {
	if c.inFrame {
		return ErrFrameState
	}
	if params.FramebufferScale == (Vec2{}) {
		params.FramebufferScale = Vec2{X: 1, Y: 1}
	}
	c.params = params
	c.used = 0
	c.inFrame = true
	return nil
}

// NewList appends a fresh list to the current frame, clipped to the display
// rectangle. Lists are drawn in the order they were created.
func (c *Context) NewList() *List {
	if !c.inFrame {
		panic("drawlist: NewList outside of NewFrame/Render")
	}
	clip := Rect{
		Min: c.params.DisplayPos,
		Max: Vec2{
			X: c.params.DisplayPos.X + c.params.DisplaySize.X,
			Y: c.params.DisplayPos.Y + c.params.DisplaySize.Y,
		},
	}
	if c.used < len(c.lists) {
		l := c.lists[c.used]
		l.reset(clip)
		c.used++
		return l
	}
	l := NewList(c.atlas, clip)
	c.lists = append(c.lists, l)
	c.used++
	return l
}

// Render finalizes the frame and returns its draw data. Empty lists are
// omitted. The returned DrawData is valid until the next NewFrame.
func (c *Context) Render() (*DrawData, error) {
	if !c.inFrame {
		return nil, ErrFrameState
	}
	c.inFrame = false
	c.frame++

	c.data.FrameParams = c.params
	c.data.Lists = c.data.Lists[:0]
	for _, l := range c.lists[:c.used] {
		l.trim()
		if len(l.Indices) == 0 {
			continue
		}
		c.data.Lists = append(c.data.Lists, l)
	}
	return &c.data, nil
}
