// Package batch turns one frame's draw lists into draw batches against a
// geometry slot.
//
// Build copies every list's vertices and indices into the slot back to back
// and emits one DrawBatch per command. All commands of a list share the
// list's base vertex (the number of vertices copied before it), so the
// 16-bit list-relative indices can be used unmodified. Index starts are the
// list's index offset plus the command's offset within the list. Batches whose
// clip rectangle falls entirely outside the framebuffer are dropped.
package batch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/internal/geom"
	"github.com/irfansharif/guistream/internal/memory"
)

// ErrMalformedCommand is returned when a command references indices outside
// its list.
var ErrMalformedCommand = errors.New("malformed draw command")

// DrawBatch is one indexed draw sharing a texture and clip rectangle. Clip is
// in framebuffer pixels with a top-left origin. IndexStart and BaseVertex are
// element offsets into the slot's index and vertex buffers.
type DrawBatch struct {
	TextureID  drawlist.TextureID
	Clip       geom.Rect
	IndexCount int
	IndexStart int
	BaseVertex int
}

// Frame is the result of one Build. It is valid until the next Build on the
// same Builder.
type Frame struct {
	Batches []DrawBatch
	// Culled counts batches dropped for lying outside the framebuffer.
	Culled int
	// VertexCount and IndexCount are the elements copied into the slot.
	VertexCount int
	IndexCount  int

	Params            drawlist.FrameParams
	FramebufferWidth  int
	FramebufferHeight int
}

// Builder builds frames. It is not safe for concurrent use.
type Builder struct {
	logger *zap.Logger
	frame  Frame

	// MaxVertices and MaxIndices are the largest per-frame totals seen.
	MaxVertices int
	MaxIndices  int
}

// NewBuilder returns a Builder.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build copies data's geometry into slot and returns the frame's batches. If
// a list does not fit the slot's remaining capacity Build returns a
// *memory.OverflowError and no frame; the batches of lists that did fit are
// discarded too. A device-owned slot fails with memory.ErrDeviceOwned.
func (b *Builder) Build(data *drawlist.DrawData, slot *memory.Slot) (*Frame, error) {
	f := &b.frame
	batches := f.Batches[:0]
	*f = Frame{Params: data.FrameParams}
	f.FramebufferWidth, f.FramebufferHeight = data.FramebufferSize()

	fbW, fbH := float64(f.FramebufferWidth), float64(f.FramebufferHeight)
	if fbW <= 0 || fbH <= 0 {
		// Minimized window; nothing to draw, nothing to copy.
		f.Batches = batches
		return f, nil
	}

	vertexOffset, indexOffset := 0, 0
	for li, l := range data.Lists {
		if err := slot.Vertices.Write(vertexOffset, l.Vertices); err != nil {
			return nil, b.abort(li, err)
		}
		if err := slot.Indices.Write(indexOffset, l.Indices); err != nil {
			return nil, b.abort(li, err)
		}

		for ci, cmd := range l.Commands {
			if cmd.ElemCount == 0 {
				continue
			}
			if cmd.IndexOffset < 0 || cmd.ElemCount < 0 || cmd.IndexOffset+cmd.ElemCount > len(l.Indices) {
				return nil, fmt.Errorf("list %d command %d: indices [%d,%d) outside %d: %w",
					li, ci, cmd.IndexOffset, cmd.IndexOffset+cmd.ElemCount, len(l.Indices), ErrMalformedCommand)
			}

			clip, visible := project(cmd.ClipRect, data.FrameParams, fbW, fbH)
			if !visible {
				f.Culled++
				continue
			}
			batches = append(batches, DrawBatch{
				TextureID:  cmd.TextureID,
				Clip:       clip,
				IndexCount: cmd.ElemCount,
				IndexStart: indexOffset + cmd.IndexOffset,
				BaseVertex: vertexOffset,
			})
		}

		vertexOffset += len(l.Vertices)
		indexOffset += len(l.Indices)
	}

	f.Batches = batches
	f.VertexCount, f.IndexCount = vertexOffset, indexOffset
	if vertexOffset > b.MaxVertices {
		b.MaxVertices = vertexOffset
	}
	if indexOffset > b.MaxIndices {
		b.MaxIndices = indexOffset
	}
	return f, nil
}

func (b *Builder) abort(list int, err error) error {
	var oerr *memory.OverflowError
	if errors.As(err, &oerr) {
		b.logger.Warn("frame geometry exceeds slot capacity, dropping frame",
			zap.Int("list", list),
			zap.String("buffer", oerr.Buffer),
			zap.Int("capacity", oerr.Capacity),
			zap.Int("excess", oerr.Excess()),
		)
	}
	return fmt.Errorf("copying list %d: %w", list, err)
}

// project maps a clip rectangle from display space into framebuffer pixels.
// It reports false when the rectangle lies entirely outside the framebuffer;
// otherwise the result is clamped to it.
func project(clip drawlist.Rect, p drawlist.FrameParams, fbW, fbH float64) (geom.Rect, bool) {
	x1 := float64((clip.Min.X - p.DisplayPos.X) * p.FramebufferScale.X)
	y1 := float64((clip.Min.Y - p.DisplayPos.Y) * p.FramebufferScale.Y)
	x2 := float64((clip.Max.X - p.DisplayPos.X) * p.FramebufferScale.X)
	y2 := float64((clip.Max.Y - p.DisplayPos.Y) * p.FramebufferScale.Y)
	if x2 <= 0 || y2 <= 0 || x1 >= fbW || y1 >= fbH {
		return geom.Rect{}, false
	}
	r := geom.RectFromCorners(x1, y1, x2, y2)
	return r.Intersect(geom.MakeRect(0, 0, fbW, fbH)), true
}
