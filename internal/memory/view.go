package memory

import (
	"fmt"
	"unsafe"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
)

// Element is the set of types a View can hold.
type Element interface {
	drawlist.Vertex | drawlist.Index
}

// View is a typed, fixed-capacity window onto one persistently mapped buffer.
// Writes are bounds-checked and refused while the owning slot is held by the
// device.
type View[T Element] struct {
	name  string
	slot  *Slot
	buf   gpu.MappedBuffer
	elems []T
}

func newView[T Element](name string, slot *Slot, buf gpu.MappedBuffer) (*View[T], error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	b := buf.Bytes()
	if len(b)%size != 0 {
		return nil, fmt.Errorf("%s buffer of %d bytes is not a multiple of the %d-byte element", name, len(b), size)
	}
	v := &View[T]{name: name, slot: slot, buf: buf}
	if n := len(b) / size; n > 0 {
		v.elems = unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
	}
	return v, nil
}

// Cap returns the capacity in elements.
func (v *View[T]) Cap() int { return len(v.elems) }

// Write copies src into the view starting at element offset. It fails without
// writing anything if the range exceeds capacity or the slot is device-owned.
func (v *View[T]) Write(offset int, src []T) error {
	if !v.slot.HostOwned() {
		return fmt.Errorf("write to %s buffer of slot %d: %w", v.name, v.slot.index, ErrDeviceOwned)
	}
	if offset < 0 || offset+len(src) > len(v.elems) {
		return &OverflowError{
			Buffer:   v.name,
			Offset:   offset,
			Count:    len(src),
			Capacity: len(v.elems),
		}
	}
	copy(v.elems[offset:], src)
	return nil
}

// Contents returns the first n elements of the view. The slice aliases mapped
// memory and is only valid while the slot is host-owned.
func (v *View[T]) Contents(n int) []T {
	return v.elems[:n:n]
}

func (v *View[T]) release() {
	v.elems = nil
	if v.buf != nil {
		v.buf.Release()
		v.buf = nil
	}
}
