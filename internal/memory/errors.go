package memory

import (
	"errors"
	"fmt"
)

// ErrDeviceOwned is returned when the host writes into a slot whose last
// device reads have not been waited on.
var ErrDeviceOwned = errors.New("slot is owned by the device")

// Buffer names used in errors.
const (
	VertexBufferName = "vertex"
	IndexBufferName  = "index"
)

// OverflowError reports a write past a buffer's fixed capacity.
type OverflowError struct {
	Buffer   string // VertexBufferName or IndexBufferName
	Offset   int    // first element of the attempted write
	Count    int    // elements in the attempted write
	Capacity int    // capacity of the buffer in elements
}

// Excess returns how many elements did not fit.
func (e *OverflowError) Excess() int {
	return e.Offset + e.Count - e.Capacity
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s buffer overflow: %d elements at offset %d exceed capacity %d by %d",
		e.Buffer, e.Count, e.Offset, e.Capacity, e.Excess())
}

// AllocationError reports that the device could not provide a resource.
type AllocationError struct {
	Resource string
	Err      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocating %s: %v", e.Resource, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }
