package guistream

import (
	"errors"
	"fmt"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
	"github.com/irfansharif/guistream/internal/batch"
	"github.com/irfansharif/guistream/internal/memory"
)

var (
	// ErrNotInitialized is returned by frame operations before Initialize
	// succeeded or after Shutdown.
	ErrNotInitialized = errors.New("guistream: renderer not initialized")
	// ErrFrameSequence is returned when BeginFrame, RenderFrame and
	// SynchronizeFrame are not called in that order once per frame.
	ErrFrameSequence = errors.New("guistream: frame operations out of order")
	// ErrMalformedCommand is returned when a draw command references indices
	// outside its list.
	ErrMalformedCommand = batch.ErrMalformedCommand
	// ErrDeviceOwned is returned when geometry would be written into a slot
	// the device may still be reading.
	ErrDeviceOwned = memory.ErrDeviceOwned
	// ErrFrameState is returned by the UI context when its frame was not
	// begun or was already rendered.
	ErrFrameState = drawlist.ErrFrameState
)

// OverflowError reports that a frame's geometry exceeded a slot's capacity.
// The frame is dropped; re-initialize with larger capacities to draw it.
type OverflowError = memory.OverflowError

// Values of OverflowError.Buffer.
const (
	VertexBuffer = memory.VertexBufferName
	IndexBuffer  = memory.IndexBufferName
)

// ResourceAllocationError reports that the device could not provide a
// resource Initialize needs: a persistently mapped buffer, the font texture
// or the shader program. Log carries the device's compile or link log when
// there is one.
type ResourceAllocationError struct {
	Resource string
	Log      string
	Err      error
}

func (e *ResourceAllocationError) Error() string {
	return fmt.Sprintf("guistream: allocating %s: %v", e.Resource, e.Err)
}

func (e *ResourceAllocationError) Unwrap() error { return e.Err }

// allocationError converts an internal allocation failure.
func allocationError(resource string, err error) *ResourceAllocationError {
	var aerr *memory.AllocationError
	if errors.As(err, &aerr) {
		resource = aerr.Resource
	}
	return &ResourceAllocationError{
		Resource: resource,
		Log:      deviceLog(err),
		Err:      err,
	}
}

// deviceLog extracts the compile or link log from a device error.
func deviceLog(err error) string {
	var serr *gpu.ShaderError
	if errors.As(err, &serr) {
		return serr.Log
	}
	return ""
}
