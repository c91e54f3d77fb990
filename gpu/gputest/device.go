// Package gputest provides a gpu.Device that runs entirely in host memory and
// records every call, for testing code that drives a device.
package gputest

import (
	"fmt"
	"time"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
)

// Op names a recorded device call.
type Op string

const (
	OpCreateBuffer      Op = "create-buffer"
	OpReleaseBuffer     Op = "release-buffer"
	OpCreateVertexArray Op = "create-vertex-array"
	OpDeleteVertexArray Op = "delete-vertex-array"
	OpInsertFence       Op = "insert-fence"
	OpWaitFence         Op = "wait-fence"
	OpDeleteFence       Op = "delete-fence"
	OpCreateProgram     Op = "create-program"
	OpDeleteProgram     Op = "delete-program"
	OpCreateTexture     Op = "create-texture"
	OpDeleteTexture     Op = "delete-texture"
	OpBeginPass         Op = "begin-pass"
	OpSetScissor        Op = "set-scissor"
	OpBindTexture       Op = "bind-texture"
	OpDraw              Op = "draw"
	OpEndPass           Op = "end-pass"
)

// Event is one recorded call. Only the fields relevant to Op are set.
type Event struct {
	Op          Op
	Fence       gpu.Fence
	Status      gpu.WaitStatus
	VertexArray gpu.VertexArray
	Texture     drawlist.TextureID
	Scissor     gpu.Scissor
	Draw        Draw
	Pass        gpu.PassState
}

// Draw is one recorded indexed draw.
type Draw struct {
	Count, FirstIndex, BaseVertex int
	Texture                       drawlist.TextureID
	Scissor                       gpu.Scissor
	VertexArray                   gpu.VertexArray
}

// Device is a recording fake. Fences signal as soon as they are inserted
// unless HoldFences is set; held fences time out until Signal is called.
type Device struct {
	Origin gpu.ClipOrigin

	// FailBufferAfter makes CreateMappedBuffer fail once this many buffers
	// have been created. Negative disables the failure.
	FailBufferAfter int
	// ProgramLog, when set, makes CreateProgram fail with this link log.
	ProgramLog string
	// HoldFences keeps newly inserted fences unsignaled.
	HoldFences bool

	Events []Event
	Draws  []Draw

	nextID   uint32
	created  int
	buffers  map[*buffer]bool
	arrays   map[gpu.VertexArray]bool
	fences   map[gpu.Fence]bool // value: signaled
	programs map[gpu.Program]bool
	textures map[drawlist.TextureID]bool

	inPass  bool
	pass    gpu.PassState
	texture drawlist.TextureID
	scissor gpu.Scissor
}

var _ gpu.Device = (*Device)(nil)

// New returns a fake device with a lower-left clip origin.
func New() *Device {
	return &Device{
		Origin:          gpu.LowerLeft,
		FailBufferAfter: -1,
		buffers:         make(map[*buffer]bool),
		arrays:          make(map[gpu.VertexArray]bool),
		fences:          make(map[gpu.Fence]bool),
		programs:        make(map[gpu.Program]bool),
		textures:        make(map[drawlist.TextureID]bool),
	}
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) record(e Event) { d.Events = append(d.Events, e) }

type buffer struct {
	d      *Device
	target gpu.BufferTarget
	data   []byte
}

func (b *buffer) Bytes() []byte { return b.data }

func (b *buffer) Release() {
	if !b.d.buffers[b] {
		return
	}
	delete(b.d.buffers, b)
	b.d.record(Event{Op: OpReleaseBuffer})
}

func (d *Device) CreateMappedBuffer(target gpu.BufferTarget, size int) (gpu.MappedBuffer, error) {
	if d.FailBufferAfter >= 0 && d.created >= d.FailBufferAfter {
		return nil, fmt.Errorf("persistent %s buffer of %d bytes: %w", target, size, gpu.ErrUnsupported)
	}
	d.created++
	// Back the view with 8-byte words so typed views over it are aligned.
	words := make([]uint64, (size+7)/8)
	data := unsafeBytes(words)[:size]
	b := &buffer{d: d, target: target, data: data}
	d.buffers[b] = true
	d.record(Event{Op: OpCreateBuffer})
	return b, nil
}

func (d *Device) CreateVertexArray(vertices, indices gpu.MappedBuffer) (gpu.VertexArray, error) {
	va := gpu.VertexArray(d.id())
	d.arrays[va] = true
	d.record(Event{Op: OpCreateVertexArray, VertexArray: va})
	return va, nil
}

func (d *Device) DeleteVertexArray(va gpu.VertexArray) {
	delete(d.arrays, va)
	d.record(Event{Op: OpDeleteVertexArray, VertexArray: va})
}

func (d *Device) InsertFence() gpu.Fence {
	f := gpu.Fence(d.id())
	d.fences[f] = !d.HoldFences
	d.record(Event{Op: OpInsertFence, Fence: f})
	return f
}

func (d *Device) WaitFence(f gpu.Fence, timeout time.Duration) gpu.WaitStatus {
	signaled, ok := d.fences[f]
	status := gpu.WaitSignaled
	switch {
	case !ok:
		status = gpu.WaitFailed
	case !signaled:
		status = gpu.WaitTimedOut
	}
	d.record(Event{Op: OpWaitFence, Fence: f, Status: status})
	return status
}

func (d *Device) DeleteFence(f gpu.Fence) {
	delete(d.fences, f)
	d.record(Event{Op: OpDeleteFence, Fence: f})
}

// Signal marks every outstanding fence as passed by the device.
func (d *Device) Signal() {
	for f := range d.fences {
		d.fences[f] = true
	}
}

func (d *Device) CreateProgram(vertexSource, fragmentSource string) (gpu.Program, error) {
	if d.ProgramLog != "" {
		return 0, &gpu.ShaderError{Stage: "linking", Log: d.ProgramLog}
	}
	p := gpu.Program(d.id())
	d.programs[p] = true
	d.record(Event{Op: OpCreateProgram})
	return p, nil
}

func (d *Device) DeleteProgram(p gpu.Program) {
	delete(d.programs, p)
	d.record(Event{Op: OpDeleteProgram})
}

func (d *Device) CreateTexture(width, height int, rgba []byte) (drawlist.TextureID, error) {
	if len(rgba) != width*height*4 {
		return 0, fmt.Errorf("texture %dx%d needs %d bytes, got %d", width, height, width*height*4, len(rgba))
	}
	id := drawlist.TextureID(d.id())
	d.textures[id] = true
	d.record(Event{Op: OpCreateTexture, Texture: id})
	return id, nil
}

func (d *Device) DeleteTexture(id drawlist.TextureID) {
	delete(d.textures, id)
	d.record(Event{Op: OpDeleteTexture, Texture: id})
}

func (d *Device) ClipOrigin() gpu.ClipOrigin { return d.Origin }

func (d *Device) BeginPass(state gpu.PassState) {
	if d.inPass {
		panic("gputest: BeginPass inside a pass")
	}
	d.inPass = true
	d.pass = state
	d.texture = 0
	d.record(Event{Op: OpBeginPass, VertexArray: state.VertexArray, Pass: state})
}

func (d *Device) SetScissor(s gpu.Scissor) {
	d.scissor = s
	d.record(Event{Op: OpSetScissor, Scissor: s})
}

func (d *Device) BindTexture(id drawlist.TextureID) {
	d.texture = id
	d.record(Event{Op: OpBindTexture, Texture: id})
}

func (d *Device) DrawIndexed(count, firstIndex, baseVertex int) {
	if !d.inPass {
		panic("gputest: DrawIndexed outside a pass")
	}
	draw := Draw{
		Count:       count,
		FirstIndex:  firstIndex,
		BaseVertex:  baseVertex,
		Texture:     d.texture,
		Scissor:     d.scissor,
		VertexArray: d.pass.VertexArray,
	}
	d.Draws = append(d.Draws, draw)
	d.record(Event{Op: OpDraw, Draw: draw, VertexArray: d.pass.VertexArray})
}

func (d *Device) EndPass(full gpu.Scissor) {
	d.inPass = false
	d.scissor = full
	d.record(Event{Op: OpEndPass, Scissor: full})
}

// Scissor returns the current scissor box.
func (d *Device) Scissor() gpu.Scissor { return d.scissor }

// Live reports the number of resources created and not yet released.
func (d *Device) Live() (buffers, arrays, fences, programs, textures int) {
	return len(d.buffers), len(d.arrays), len(d.fences), len(d.programs), len(d.textures)
}

// Ops returns the recorded operations, optionally restricted to ops.
func (d *Device) Ops(ops ...Op) []Event {
	if len(ops) == 0 {
		return d.Events
	}
	var out []Event
	for _, e := range d.Events {
		for _, op := range ops {
			if e.Op == op {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Reset clears recorded events and draws, keeping live resources.
func (d *Device) Reset() {
	d.Events = nil
	d.Draws = nil
}
