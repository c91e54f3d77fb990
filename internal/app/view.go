package app

import (
	"github.com/irfansharif/guistream/internal/geom"
)

const (
	minZoom = 0.1
	maxZoom = 8.0
)

// View manages the current view state including zoom, pan, and viewport. The
// viewport is in display (virtual pixel) coordinates.
type View struct {
	Zoom          float64
	PanX, PanY    float64
	Width, Height int
}

// NewView creates a new view state with default values.
func NewView(width, height int) *View {
	return &View{
		Zoom:   1.0,
		Width:  width,
		Height: height,
	}
}

// SetZoom sets the zoom level, clamping to valid range.
func (vs *View) SetZoom(zoom float64) {
	if zoom < minZoom {
		vs.Zoom = minZoom
	} else if zoom > maxZoom {
		vs.Zoom = maxZoom
	} else {
		vs.Zoom = zoom
	}
}

// SetPan sets the pan position to the given coordinates.
func (vs *View) SetPan(x, y float64) {
	vs.PanX = x
	vs.PanY = y
}

// SetViewport updates the viewport dimensions.
func (vs *View) SetViewport(width, height int) {
	vs.Width = width
	vs.Height = height
}

// ResetTo resets zoom to 1.0 and pans to center the given point in the
// viewport.
func (vs *View) ResetTo(pos geom.Point) {
	vs.Zoom = 1.0
	viewportCenterX := float64(vs.Width) / 2.0
	viewportCenterY := float64(vs.Height) / 2.0
	vs.PanX = viewportCenterX - pos.X
	vs.PanY = viewportCenterY - pos.Y
}

// ToScreen maps a canvas point to display coordinates. Zoom is centered on
// the viewport:
//
//	screen = center*(1-zoom) + pan + canvas*zoom
func (vs *View) ToScreen(p geom.Point) geom.Point {
	cx, cy := float64(vs.Width)/2, float64(vs.Height)/2
	return geom.Point{
		X: cx*(1-vs.Zoom) + vs.PanX + p.X*vs.Zoom,
		Y: cy*(1-vs.Zoom) + vs.PanY + p.Y*vs.Zoom,
	}
}

// ToCanvas is the inverse of ToScreen.
func (vs *View) ToCanvas(p geom.Point) geom.Point {
	cx, cy := float64(vs.Width)/2, float64(vs.Height)/2
	return geom.Point{
		X: (p.X - cx*(1-vs.Zoom) - vs.PanX) / vs.Zoom,
		Y: (p.Y - cy*(1-vs.Zoom) - vs.PanY) / vs.Zoom,
	}
}

// RectToScreen maps a canvas rectangle to display coordinates.
func (vs *View) RectToScreen(r geom.Rect) geom.Rect {
	min := vs.ToScreen(geom.Point{X: r.X, Y: r.Y})
	return geom.Rect{X: min.X, Y: min.Y, W: r.W * vs.Zoom, H: r.H * vs.Zoom}
}
