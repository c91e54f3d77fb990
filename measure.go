package guistream

import (
	"math"

	"github.com/irfansharif/guistream/drawlist"
)

// DefaultHeadroom is the growth factor Measure applies to observed volumes.
const DefaultHeadroom = 1.5

// Measure returns capacity hints for Initialize from a dry run: the largest
// vertex and index totals over frames, scaled by headroom (at least 1) and
// never below one element.
func Measure(headroom float64, frames ...*drawlist.DrawData) (vertices, indices int) {
	if headroom < 1 {
		headroom = 1
	}
	for _, f := range frames {
		if f == nil {
			continue
		}
		vertices = max(vertices, f.TotalVertices())
		indices = max(indices, f.TotalIndices())
	}
	vertices = max(1, int(math.Ceil(float64(vertices)*headroom)))
	indices = max(1, int(math.Ceil(float64(indices)*headroom)))
	return vertices, indices
}
