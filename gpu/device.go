// Package gpu defines the device operations the streaming renderer needs:
// persistently mapped buffers, completion fences, a shader program, a static
// texture, and scissored indexed draws with a base vertex.
//
// Package gpu/opengl implements Device on OpenGL 4.5; package gpu/gputest
// provides a recording fake for tests.
package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/irfansharif/guistream/drawlist"
)

// ErrUnsupported is returned when the device lacks a capability the renderer
// depends on, such as persistent buffer mapping.
var ErrUnsupported = errors.New("gpu: capability not supported")

// ShaderError is returned by CreateProgram when a shader does not compile or
// the program does not link. Log is the device's info log.
type ShaderError struct {
	Stage string // "compilation" or "linking"
	Log   string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("shader %s failed: %s", e.Stage, e.Log)
}

// BufferTarget identifies what a mapped buffer stores.
type BufferTarget int

const (
	VertexBuffer BufferTarget = iota
	IndexBuffer
)

func (t BufferTarget) String() string {
	switch t {
	case VertexBuffer:
		return "vertex"
	case IndexBuffer:
		return "index"
	default:
		return "unknown"
	}
}

// MappedBuffer is device memory with a host-writable view that remains valid
// from creation until Release (persistent mapping).
type MappedBuffer interface {
	// Bytes returns the host view. Its length is the buffer size and it must
	// not be retained past Release.
	Bytes() []byte
	// Release unmaps and deletes the buffer. Releasing twice is a no-op.
	Release()
}

// VertexArray binds a vertex buffer's attribute layout and an index buffer.
type VertexArray uint32

// Fence is an opaque marker in the device's command stream.
type Fence uintptr

// Program is a linked shader program.
type Program uint32

// WaitStatus is the outcome of a bounded fence wait.
type WaitStatus int

const (
	// WaitSignaled means the device had passed the fence when the wait
	// returned.
	WaitSignaled WaitStatus = iota
	// WaitTimedOut means the timeout elapsed before the fence signaled.
	WaitTimedOut
	// WaitFailed means the device reported an error while waiting.
	WaitFailed
)

func (s WaitStatus) String() string {
	switch s {
	case WaitSignaled:
		return "signaled"
	case WaitTimedOut:
		return "timed-out"
	case WaitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ClipOrigin describes how a device maps clip space and scissor boxes onto
// the framebuffer. Display space, the space clip rectangles arrive in, has its
// origin at the top-left corner with y growing downwards.
type ClipOrigin int

const (
	// LowerLeft is the OpenGL default: clip-space +y is the top of the
	// framebuffer and scissor boxes are in lower-left window coordinates, so
	// clip rectangles are flipped.
	LowerLeft ClipOrigin = iota
	// UpperLeft is OpenGL with glClipControl(GL_UPPER_LEFT): clip-space +y is
	// the bottom of the framebuffer, so the projection swaps top and bottom.
	// Scissor boxes stay in lower-left window coordinates and are flipped.
	UpperLeft
	// TopLeft is a device whose scissor boxes are in top-left window
	// coordinates and whose clip-space +y is the top, as in Direct3D. Neither
	// clip rectangles nor the projection are flipped.
	TopLeft
)

func (o ClipOrigin) String() string {
	switch o {
	case LowerLeft:
		return "lower-left"
	case UpperLeft:
		return "upper-left"
	case TopLeft:
		return "top-left"
	default:
		return "unknown"
	}
}

// FlipsScissor reports whether display-space clip rectangles must be flipped
// vertically to become scissor boxes.
func (o ClipOrigin) FlipsScissor() bool { return o != TopLeft }

// SwapsProjection reports whether the projection must map the display's top
// edge to clip-space y=-1 instead of y=+1.
func (o ClipOrigin) SwapsProjection() bool { return o == UpperLeft }

// Scissor is a scissor box in framebuffer pixels, in the device's clip
// origin.
type Scissor struct {
	X, Y, W, H int
}

// PassState is the fixed render state configured once per frame.
type PassState struct {
	Program           Program
	VertexArray       VertexArray
	FramebufferWidth  int
	FramebufferHeight int
	Projection        [16]float32
}

// Device is the subset of a graphics device the renderer drives. All methods
// are called from the goroutine that owns the device context.
type Device interface {
	// CreateMappedBuffer allocates size bytes of immutable storage for target
	// and maps it persistently for host writes.
	CreateMappedBuffer(target BufferTarget, size int) (MappedBuffer, error)
	// CreateVertexArray binds the drawlist.Vertex layout of vertices and the
	// index buffer indices into a vertex array.
	CreateVertexArray(vertices, indices MappedBuffer) (VertexArray, error)
	DeleteVertexArray(va VertexArray)

	// InsertFence places a fence after all commands issued so far.
	InsertFence() Fence
	// WaitFence flushes pending commands and waits at most timeout for f to
	// signal.
	WaitFence(f Fence, timeout time.Duration) WaitStatus
	DeleteFence(f Fence)

	// CreateProgram compiles and links a program. Errors carry the device's
	// compile or link log.
	CreateProgram(vertexSource, fragmentSource string) (Program, error)
	DeleteProgram(p Program)
	// CreateTexture uploads an RGBA8 image as a linearly filtered 2D texture.
	CreateTexture(width, height int, rgba []byte) (drawlist.TextureID, error)
	DeleteTexture(id drawlist.TextureID)

	// ClipOrigin reports how clip space and scissor boxes map onto the
	// framebuffer.
	ClipOrigin() ClipOrigin
	// BeginPass configures blending, disables depth test and face culling,
	// enables the scissor test, and binds the program and vertex array.
	BeginPass(state PassState)
	SetScissor(s Scissor)
	BindTexture(id drawlist.TextureID)
	// DrawIndexed draws count indices starting at element firstIndex of the
	// bound index buffer, adding baseVertex to every index.
	DrawIndexed(count, firstIndex, baseVertex int)
	// EndPass unbinds pass state and restores the scissor to full.
	EndPass(full Scissor)
}
