package drawlist

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBA packs 8-bit channels into a vertex color. The red channel occupies the
// lowest byte so the in-memory byte order is R, G, B, A.
func RGBA(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// ColorFrom packs a go-colorful color with the given alpha in [0, 1].
func ColorFrom(c colorful.Color, alpha float64) uint32 {
	r, g, b := c.Clamped().RGB255()
	return RGBA(r, g, b, uint8(clamp01(alpha)*255+0.5))
}

// ColorFromRGBA packs an image/color RGBA value.
func ColorFromRGBA(c color.RGBA) uint32 {
	return RGBA(c.R, c.G, c.B, c.A)
}

// Unpack returns the channels of a packed vertex color.
func Unpack(col uint32) color.RGBA {
	return color.RGBA{R: uint8(col), G: uint8(col >> 8), B: uint8(col >> 16), A: uint8(col >> 24)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
