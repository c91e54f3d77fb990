// Package render issues a frame's draw batches to the device.
//
// Fixed state (blending, depth and face culling off, scissor test on, program,
// vertex array, projection) is configured once per frame. Each batch then sets
// its scissor, binds its texture when it differs from the previous batch's,
// and issues one indexed draw with a base vertex. After the last batch the
// scissor is reset to the whole framebuffer.
package render

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
	"github.com/irfansharif/guistream/internal/batch"
	"github.com/irfansharif/guistream/internal/geom"
	"github.com/irfansharif/guistream/internal/memory"
)

// Renderer owns the shader program and the static font texture.
type Renderer struct {
	dev       gpu.Device
	logger    *zap.Logger
	origin    gpu.ClipOrigin
	program   gpu.Program
	font      drawlist.TextureID
	fontOwned bool
}

// Result summarizes one Issue.
type Result struct {
	DrawCalls    int
	TextureBinds int
}

// New uploads the font atlas as a texture and builds the shader program. When
// atlas is nil no texture is created. origin selects whether scissor boxes
// and the projection are flipped.
func New(dev gpu.Device, atlas *drawlist.FontAtlas, origin gpu.ClipOrigin, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{dev: dev, logger: logger, origin: origin}

	if atlas != nil {
		id, err := dev.CreateTexture(atlas.Width, atlas.Height, atlas.Pixels)
		if err != nil {
			return nil, fmt.Errorf("font texture: %w", err)
		}
		r.font, r.fontOwned = id, true
		atlas.TexID = id
	}

	p, err := dev.CreateProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("shader program: %w", err)
	}
	r.program = p

	logger.Debug("renderer created",
		zap.Stringer("clip_origin", origin),
		zap.Uint64("font_texture", uint64(r.font)),
	)
	return r, nil
}

// FontTexture returns the font texture, or zero when none was created.
func (r *Renderer) FontTexture() drawlist.TextureID { return r.font }

// Issue draws frame's batches from slot's buffers.
func (r *Renderer) Issue(frame *batch.Frame, slot *memory.Slot) Result {
	var res Result
	if len(frame.Batches) == 0 {
		return res
	}

	fbW, fbH := frame.FramebufferWidth, frame.FramebufferHeight
	display := geom.MakeRect(
		float64(frame.Params.DisplayPos.X), float64(frame.Params.DisplayPos.Y),
		float64(frame.Params.DisplaySize.X), float64(frame.Params.DisplaySize.Y),
	)
	r.dev.BeginPass(gpu.PassState{
		Program:           r.program,
		VertexArray:       slot.VertexArray(),
		FramebufferWidth:  fbW,
		FramebufferHeight: fbH,
		Projection:        Projection(display, r.origin),
	})

	flip := r.origin.FlipsScissor()
	bound := drawlist.TextureID(0)
	for i, b := range frame.Batches {
		r.dev.SetScissor(Scissor(b.Clip, fbH, flip))
		if i == 0 || b.TextureID != bound {
			r.dev.BindTexture(b.TextureID)
			bound = b.TextureID
			res.TextureBinds++
		}
		r.dev.DrawIndexed(b.IndexCount, b.IndexStart, b.BaseVertex)
		res.DrawCalls++
	}

	r.dev.EndPass(gpu.Scissor{W: fbW, H: fbH})
	return res
}

// Projection maps the display rectangle to clip space for origin. The
// display's top edge goes to y=+1, or to y=-1 when origin swaps the
// projection.
func Projection(display geom.Rect, origin gpu.ClipOrigin) [16]float32 {
	ortho := geom.Ortho(display)
	if origin.SwapsProjection() {
		ortho = geom.MakeAffine(1, 0, 0, 0, -1, 0).Mul(ortho)
	}
	return ortho.Matrix4()
}

// Scissor converts a clip rectangle in top-left framebuffer pixels to a
// device scissor box, flipping Y into lower-left window coordinates when
// flip is set.
func Scissor(clip geom.Rect, fbHeight int, flip bool) gpu.Scissor {
	s := gpu.Scissor{
		X: int(clip.X),
		Y: int(clip.Y),
		W: int(clip.W),
		H: int(clip.H),
	}
	if flip {
		s.Y = fbHeight - int(clip.Bottom())
	}
	return s
}

// Shutdown deletes the program and the font texture.
func (r *Renderer) Shutdown() {
	if r.program != 0 {
		r.dev.DeleteProgram(r.program)
		r.program = 0
	}
	if r.fontOwned {
		r.dev.DeleteTexture(r.font)
		r.font, r.fontOwned = 0, false
	}
}
