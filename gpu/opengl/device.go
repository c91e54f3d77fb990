// Package opengl implements gpu.Device on OpenGL 4.5 core with go-gl.
//
// Geometry buffers use immutable storage (glNamedBufferStorage) mapped once
// with MAP_WRITE | MAP_PERSISTENT | MAP_COHERENT, so host writes become visible
// to the device without explicit flushes and the mapping stays valid until the
// buffer is released. Completion tokens are GL sync objects.
//
// All methods must be called on the thread that owns the GL context.
package opengl

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
	"go.uber.org/zap"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
)

const mapFlags = gl.MAP_WRITE_BIT | gl.MAP_PERSISTENT_BIT | gl.MAP_COHERENT_BIT

// Device is an OpenGL gpu.Device.
type Device struct {
	logger *zap.Logger
	origin gpu.ClipOrigin

	projLocation int32
	texLocation  int32
	program      gpu.Program
}

var _ gpu.Device = (*Device)(nil)

// New loads the GL function pointers for the current context and checks that
// persistent buffer mapping and direct state access are available. It fails
// with gpu.ErrUnsupported otherwise.
func New(logger *zap.Logger) (*Device, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// gl.Init fails when any 4.5 entry point is missing, which is how a
	// context older than 4.5 without the matching extensions shows up.
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL 4.5 entry points: %v: %w", err, gpu.ErrUnsupported)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	renderer := gl.GoStr(gl.GetString(gl.RENDERER))
	if !SupportsPersistentMapping() {
		return nil, fmt.Errorf("OpenGL %s on %s lacks buffer storage or direct state access: %w",
			version, renderer, gpu.ErrUnsupported)
	}

	d := &Device{logger: logger, origin: queryClipOrigin()}
	logger.Info("OpenGL device ready",
		zap.String("version", version),
		zap.String("renderer", renderer),
		zap.Stringer("clip_origin", d.origin),
	)
	return d, nil
}

// SupportsPersistentMapping reports whether the current context provides
// what the device calls into: immutable, persistently mappable buffer storage
// and the direct state access entry points used to create and map it.
func SupportsPersistentMapping() bool {
	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	return supportsPersistentMapping(int(major), int(minor), HasExtension)
}

// supportsPersistentMapping requires 4.5, or buffer storage (core since 4.4)
// together with GL_ARB_direct_state_access.
func supportsPersistentMapping(major, minor int, hasExtension func(string) bool) bool {
	atLeast := func(wantMajor, wantMinor int) bool {
		return major > wantMajor || (major == wantMajor && minor >= wantMinor)
	}
	if atLeast(4, 5) {
		return true
	}
	bufferStorage := atLeast(4, 4) || hasExtension("GL_ARB_buffer_storage")
	return bufferStorage && hasExtension("GL_ARB_direct_state_access")
}

// HasExtension reports whether the current context advertises ext.
func HasExtension(ext string) bool {
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	for i := int32(0); i < n; i++ {
		if gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i))) == ext {
			return true
		}
	}
	return false
}

// queryClipOrigin reads the glClipControl origin. Scissor boxes stay in
// lower-left window coordinates either way.
func queryClipOrigin() gpu.ClipOrigin {
	var origin int32
	gl.GetIntegerv(gl.CLIP_ORIGIN, &origin)
	return clipOrigin(origin)
}

func clipOrigin(glOrigin int32) gpu.ClipOrigin {
	if glOrigin == gl.UPPER_LEFT {
		return gpu.UpperLeft
	}
	return gpu.LowerLeft
}

// buffer is a persistently mapped buffer object.
type buffer struct {
	id   uint32
	data []byte
}

func (b *buffer) Bytes() []byte { return b.data }

func (b *buffer) Release() {
	if b.id == 0 {
		return
	}
	b.data = nil
	gl.UnmapNamedBuffer(b.id)
	gl.DeleteBuffers(1, &b.id)
	b.id = 0
}

func (d *Device) CreateMappedBuffer(target gpu.BufferTarget, size int) (gpu.MappedBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%s buffer of %d bytes", target, size)
	}
	b := &buffer{}
	gl.CreateBuffers(1, &b.id)
	gl.NamedBufferStorage(b.id, size, nil, mapFlags)
	if err := glError(); err != nil {
		gl.DeleteBuffers(1, &b.id)
		return nil, fmt.Errorf("%s buffer storage of %d bytes: %v: %w", target, size, err, gpu.ErrUnsupported)
	}

	ptr := gl.MapNamedBufferRange(b.id, 0, size, mapFlags)
	if ptr == nil {
		err := glError()
		gl.DeleteBuffers(1, &b.id)
		return nil, fmt.Errorf("persistently mapping %s buffer of %d bytes: %v: %w", target, size, err, gpu.ErrUnsupported)
	}
	b.data = unsafe.Slice((*byte)(ptr), size)

	d.logger.Debug("mapped buffer created",
		zap.Stringer("target", target),
		zap.Uint32("id", b.id),
		zap.Int("bytes", size),
	)
	return b, nil
}

// CreateVertexArray binds the drawlist.Vertex layout: position and UV as two
// floats each, color as four normalized unsigned bytes.
func (d *Device) CreateVertexArray(vertices, indices gpu.MappedBuffer) (gpu.VertexArray, error) {
	vb, ok1 := vertices.(*buffer)
	ib, ok2 := indices.(*buffer)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("vertex array over buffers not created by this device")
	}

	var vao uint32
	gl.CreateVertexArrays(1, &vao)
	gl.VertexArrayVertexBuffer(vao, 0, vb.id, 0, int32(drawlist.VertexSize))
	gl.VertexArrayElementBuffer(vao, ib.id)

	attribs := []struct {
		size       int32
		xtype      uint32
		normalized bool
		offset     int
	}{
		{2, gl.FLOAT, false, drawlist.VertexPosOffset},
		{2, gl.FLOAT, false, drawlist.VertexUVOffset},
		{4, gl.UNSIGNED_BYTE, true, drawlist.VertexColOffset},
	}
	for i, a := range attribs {
		loc := uint32(i)
		gl.EnableVertexArrayAttrib(vao, loc)
		gl.VertexArrayAttribFormat(vao, loc, a.size, a.xtype, a.normalized, uint32(a.offset))
		gl.VertexArrayAttribBinding(vao, loc, 0)
	}
	if err := glError(); err != nil {
		gl.DeleteVertexArrays(1, &vao)
		return 0, fmt.Errorf("creating vertex array: %v", err)
	}
	return gpu.VertexArray(vao), nil
}

func (d *Device) DeleteVertexArray(va gpu.VertexArray) {
	id := uint32(va)
	gl.DeleteVertexArrays(1, &id)
}

func (d *Device) InsertFence() gpu.Fence {
	return gpu.Fence(gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0))
}

func (d *Device) WaitFence(f gpu.Fence, timeout time.Duration) gpu.WaitStatus {
	ret := gl.ClientWaitSync(uintptr(f), gl.SYNC_FLUSH_COMMANDS_BIT, timeoutNanos(timeout))
	return waitStatus(ret)
}

func (d *Device) DeleteFence(f gpu.Fence) {
	gl.DeleteSync(uintptr(f))
}

// timeoutNanos converts a wait timeout to the nanoseconds ClientWaitSync
// takes, treating negative durations as a poll.
func timeoutNanos(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d.Nanoseconds())
}

func waitStatus(ret uint32) gpu.WaitStatus {
	switch ret {
	case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
		return gpu.WaitSignaled
	case gl.TIMEOUT_EXPIRED:
		return gpu.WaitTimedOut
	default:
		return gpu.WaitFailed
	}
}

func (d *Device) ClipOrigin() gpu.ClipOrigin { return d.origin }

// BeginPass sets alpha blending, disables depth test and face culling,
// enables the scissor test, and binds the program, its uniforms and va.
func (d *Device) BeginPass(s gpu.PassState) {
	gl.Enable(gl.BLEND)
	gl.BlendEquation(gl.FUNC_ADD)
	gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.STENCIL_TEST)
	gl.Enable(gl.SCISSOR_TEST)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	gl.Viewport(0, 0, int32(s.FramebufferWidth), int32(s.FramebufferHeight))

	gl.UseProgram(uint32(s.Program))
	if s.Program != d.program {
		d.program = s.Program
		d.projLocation = gl.GetUniformLocation(uint32(s.Program), gl.Str("ProjMtx\x00"))
		d.texLocation = gl.GetUniformLocation(uint32(s.Program), gl.Str("Texture\x00"))
	}
	gl.Uniform1i(d.texLocation, 0)
	gl.UniformMatrix4fv(d.projLocation, 1, false, &s.Projection[0])
	gl.BindVertexArray(uint32(s.VertexArray))
}

func (d *Device) SetScissor(s gpu.Scissor) {
	gl.Scissor(int32(s.X), int32(s.Y), int32(s.W), int32(s.H))
}

func (d *Device) BindTexture(id drawlist.TextureID) {
	gl.BindTextureUnit(0, uint32(id))
}

func (d *Device) DrawIndexed(count, firstIndex, baseVertex int) {
	gl.DrawElementsBaseVertex(gl.TRIANGLES, int32(count), gl.UNSIGNED_SHORT,
		gl.PtrOffset(firstIndex*drawlist.IndexSize), int32(baseVertex))
}

func (d *Device) EndPass(full gpu.Scissor) {
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	d.SetScissor(full)
	gl.Disable(gl.SCISSOR_TEST)
}

// glError drains the GL error queue and reports what it held.
func glError() error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, fmt.Sprintf("0x%04x", code))
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("GL error %s", strings.Join(codes, ", "))
}
