// Package palette provides the demo's panel color themes. It implements
// HSV-based palette generation with shimmer effects and packs colors into the
// RGBA8 vertex format.
package palette

import (
	"image/color"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/irfansharif/guistream/drawlist"
)

// Palette holds five RGBA colors: background, surface, and three accents.
type Palette [5]color.RGBA

// Roles of the palette entries.
const (
	Background = 0
	Surface    = 1
	Accent     = 2 // Accent, Accent+1 and Accent+2
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hsb converts a hue, saturation and brightness in 0..100 to RGBA.
func hsb(h, s, b float64) color.RGBA {
	hue := h * 3.6
	sat := clamp(s/100.0, 0, 1)
	bright := clamp(b/100.0, 0, 1)

	c := colorful.Hsv(hue, sat, bright)
	red, green, blue := c.RGB255()
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}

// RandomPalette returns a palette using HSV generation: a dark background, a
// light surface for text to sit on, and three mid-tone accents.
func RandomPalette(r *rand.Rand) Palette {
	p := Palette{}
	p[Background] = hsb(r.Float64()*100, r.Float64()*100, r.Float64()*30)
	p[Surface] = color.RGBA{R: 245, G: 245, B: 245, A: 255}
	for i := Accent; i < len(p); i++ {
		p[i] = hsb(r.Float64()*100, r.Float64()*50+25, r.Float64()*50+25)
	}
	return p
}

// Shimmered applies a brightness jitter to the accents when shimmer >= 0.
func Shimmered(p Palette, shimmer int, r *rand.Rand) Palette {
	if shimmer < 0 {
		return p
	}

	out := p
	for i := Accent; i < len(out); i++ {
		// Convert RGBA to HSV.
		c := colorful.Color{R: float64(out[i].R) / 255, G: float64(out[i].G) / 255, B: float64(out[i].B) / 255}
		h, s, v := c.Hsv()

		// Apply brightness jitter.
		v = clamp(v+(r.Float64()-0.5)*0.2, 0, 1)

		// Convert back to RGBA.
		red, green, blue := colorful.Hsv(h, s, v).RGB255()
		out[i] = color.RGBA{R: red, G: green, B: blue, A: 255}
	}
	return out
}

// Packed returns the palette in the vertex color format.
func (p Palette) Packed() [5]uint32 {
	var out [5]uint32
	for i, c := range p {
		out[i] = drawlist.ColorFromRGBA(c)
	}
	return out
}

// Contrast returns black or white, whichever reads better on c.
func Contrast(c color.RGBA) color.RGBA {
	cc, _ := colorful.MakeColor(c)
	_, _, l := cc.Hcl()
	if l > 0.6 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
