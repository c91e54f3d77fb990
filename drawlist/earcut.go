package drawlist

import (
	"fmt"

	"github.com/rclancey/earcut"
)

// earClip triangulates a simple polygon using the earcut algorithm. It returns
// triangle corner indices into points, three per triangle.
func earClip(points []Vec2) ([]int, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("degenerate polygon (%d vertices < 3)", len(points))
	}

	// Convert polygon points to flat coordinate array required by earcut.
	// Format: [x0, y0, x1, y1, ..., xn, yn]
	vertexCoords := make([]float64, len(points)*2)
	for i, p := range points {
		vertexCoords[i*2] = float64(p.X)
		vertexCoords[i*2+1] = float64(p.Y)
	}

	triangleIndices, err := earcut.Earcut(vertexCoords, nil /* holeIndices */, 2 /* dim */)
	if err != nil {
		return nil, fmt.Errorf("triangulation failed for %d-vertex polygon: %w", len(points), err)
	}
	if len(triangleIndices)%3 != 0 {
		return nil, fmt.Errorf("invalid triangle count (indices: %d, not divisible by 3)", len(triangleIndices))
	}
	return triangleIndices, nil
}
