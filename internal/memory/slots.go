// Package memory provides the double-buffered geometry storage the renderer
// streams into every frame.
//
// A SlotPair owns two slots. Each slot holds one vertex and one index buffer,
// persistently mapped and fixed in capacity for its whole lifetime. Slots
// alternate between the host (writing next frame's geometry) and the device
// (reading this frame's), and each slot carries an explicit ownership token
// so that a write into memory the device may still be reading is refused
// instead of racing.
package memory

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
)

// SlotCount is the number of slots in a pair.
const SlotCount = 2

// Owner is the two-state ownership token of a slot.
type Owner int

const (
	// HostOwned slots may be written by the host; the device has no pending
	// reads of them.
	HostOwned Owner = iota
	// DeviceOwned slots have draws in flight that read them.
	DeviceOwned
)

func (o Owner) String() string {
	switch o {
	case HostOwned:
		return "host"
	case DeviceOwned:
		return "device"
	default:
		return "unknown"
	}
}

// Slot is one vertex/index buffer set.
type Slot struct {
	index       int
	owner       Owner
	vertexArray gpu.VertexArray

	Vertices *View[drawlist.Vertex]
	Indices  *View[drawlist.Index]
}

// Index returns the slot's position in its pair (0 or 1).
func (s *Slot) Index() int { return s.index }

// Owner returns who currently owns the slot.
func (s *Slot) Owner() Owner { return s.owner }

// HostOwned reports whether the host may write into the slot.
func (s *Slot) HostOwned() bool { return s.owner == HostOwned }

// VertexArray returns the device vertex array binding the slot's buffers.
func (s *Slot) VertexArray() gpu.VertexArray { return s.vertexArray }

// Release hands the slot to the device once draws reading it were issued.
func (s *Slot) Release() { s.owner = DeviceOwned }

// Acquire hands the slot back to the host after its fence was waited on.
func (s *Slot) Acquire() { s.owner = HostOwned }

// SlotPair is the pair of geometry slots.
type SlotPair struct {
	dev    gpu.Device
	logger *zap.Logger

	vertexCapacity int
	indexCapacity  int
	slots          [SlotCount]*Slot
}

// New allocates both slots with the given capacities in elements. Both slots
// start host-owned. If any allocation fails, everything allocated so far is
// released and an *AllocationError is returned.
func New(dev gpu.Device, vertexCapacity, indexCapacity int, logger *zap.Logger) (*SlotPair, error) {
	if vertexCapacity <= 0 || indexCapacity <= 0 {
		return nil, &AllocationError{
			Resource: "geometry slots",
			Err:      fmt.Errorf("capacities must be positive, got %d vertices and %d indices", vertexCapacity, indexCapacity),
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sp := &SlotPair{
		dev:            dev,
		logger:         logger,
		vertexCapacity: vertexCapacity,
		indexCapacity:  indexCapacity,
	}
	for i := range sp.slots {
		if err := sp.allocate(i); err != nil {
			sp.Shutdown()
			return nil, err
		}
	}

	logger.Info("geometry slots allocated",
		zap.Int("slots", SlotCount),
		zap.Int("vertex_capacity", vertexCapacity),
		zap.Int("index_capacity", indexCapacity),
		zap.String("device_bytes", formatBytes(int64(sp.Bytes()))),
	)
	return sp, nil
}

// allocate creates slot i's buffers and vertex array. Partially created
// resources are attached to the slot as they appear so Shutdown can find them.
func (sp *SlotPair) allocate(i int) error {
	slot := &Slot{index: i, owner: HostOwned}
	sp.slots[i] = slot

	vb, err := sp.dev.CreateMappedBuffer(gpu.VertexBuffer, sp.vertexCapacity*drawlist.VertexSize)
	if err != nil {
		return &AllocationError{Resource: fmt.Sprintf("slot %d vertex buffer", i), Err: err}
	}
	if slot.Vertices, err = newView[drawlist.Vertex](VertexBufferName, slot, vb); err != nil {
		vb.Release()
		return &AllocationError{Resource: fmt.Sprintf("slot %d vertex buffer", i), Err: err}
	}

	ib, err := sp.dev.CreateMappedBuffer(gpu.IndexBuffer, sp.indexCapacity*drawlist.IndexSize)
	if err != nil {
		return &AllocationError{Resource: fmt.Sprintf("slot %d index buffer", i), Err: err}
	}
	if slot.Indices, err = newView[drawlist.Index](IndexBufferName, slot, ib); err != nil {
		ib.Release()
		return &AllocationError{Resource: fmt.Sprintf("slot %d index buffer", i), Err: err}
	}

	va, err := sp.dev.CreateVertexArray(vb, ib)
	if err != nil {
		return &AllocationError{Resource: fmt.Sprintf("slot %d vertex array", i), Err: err}
	}
	slot.vertexArray = va
	return nil
}

// Slot returns slot i.
func (sp *SlotPair) Slot(i int) *Slot { return sp.slots[i] }

// VertexCapacity returns the per-slot vertex capacity in elements.
func (sp *SlotPair) VertexCapacity() int { return sp.vertexCapacity }

// IndexCapacity returns the per-slot index capacity in elements.
func (sp *SlotPair) IndexCapacity() int { return sp.indexCapacity }

// Bytes returns the device memory held by both slots.
func (sp *SlotPair) Bytes() int {
	return SlotCount * (sp.vertexCapacity*drawlist.VertexSize + sp.indexCapacity*drawlist.IndexSize)
}

// Shutdown releases every device resource the pair holds. It is safe to call
// on a partially allocated pair and more than once.
func (sp *SlotPair) Shutdown() {
	for i, slot := range sp.slots {
		if slot == nil {
			continue
		}
		if slot.vertexArray != 0 {
			sp.dev.DeleteVertexArray(slot.vertexArray)
			slot.vertexArray = 0
		}
		if slot.Vertices != nil {
			slot.Vertices.release()
		}
		if slot.Indices != nil {
			slot.Indices.release()
		}
		sp.slots[i] = nil
	}
}

// Usage describes how much of a slot one frame used.
type Usage struct {
	Vertices, Indices int
}

// LogUsage writes a one-line utilization summary for a frame's geometry.
func (sp *SlotPair) LogUsage(slot int, u Usage) {
	vertUtil := float64(u.Vertices) / float64(sp.vertexCapacity)
	idxUtil := float64(u.Indices) / float64(sp.indexCapacity)
	sp.logger.Debug("slot usage",
		zap.Int("slot", slot),
		zap.String("vertices", fmt.Sprintf("%s %.1f%% (%s/%s)",
			makeUtilizationBar(vertUtil, 12), vertUtil*100,
			formatNumber(int64(u.Vertices)), formatNumber(int64(sp.vertexCapacity)))),
		zap.String("indices", fmt.Sprintf("%s %.1f%% (%s/%s)",
			makeUtilizationBar(idxUtil, 12), idxUtil*100,
			formatNumber(int64(u.Indices)), formatNumber(int64(sp.indexCapacity)))),
	)
}

// makeUtilizationBar creates a visual bar for utilization percentage.
func makeUtilizationBar(utilization float64, width int) string {
	if utilization < 0 {
		utilization = 0
	}
	if utilization > 1 {
		utilization = 1
	}

	filled := int(utilization * float64(width))
	empty := width - filled
	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

// formatNumber formats large numbers with K/M suffixes for readability.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000.0)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000.0)
}

// formatBytes formats a byte count in KiB/MiB.
func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fKiB", float64(n)/1024.0)
	default:
		return fmt.Sprintf("%.2fMiB", float64(n)/(1024.0*1024.0))
	}
}
