package drawlist

import (
	"golang.org/x/image/font/basicfont"
)

// whiteRows is the number of fully opaque rows appended below the glyphs.
// Solid fills sample the center of this band so that every primitive can
// share the font texture.
const whiteRows = 2

// FontAtlas is the single static font texture: the 7x13 fixed bitmap face
// rendered white-on-transparent, followed by a small opaque band for solid
// fills. It is built once and never changes.
type FontAtlas struct {
	Width, Height int
	Pixels        []byte // RGBA8, row-major, Width*Height*4 bytes

	// TexID is the device texture the atlas was uploaded to. The renderer
	// publishes it after creating the texture; commands built before then
	// carry the zero TextureID.
	TexID TextureID

	face    *basicfont.Face
	whiteUV Vec2
}

func newFontAtlas() *FontAtlas {
	face := basicfont.Face7x13
	bounds := face.Mask.Bounds()
	w, glyphsH := bounds.Dx(), bounds.Dy()
	h := glyphsH + whiteRows

	pixels := make([]byte, w*h*4)
	for y := 0; y < glyphsH; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := face.Mask.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			o := (y*w + x) * 4
			pixels[o+0], pixels[o+1], pixels[o+2] = 0xff, 0xff, 0xff
			pixels[o+3] = uint8(a >> 8)
		}
	}
	for i := glyphsH * w * 4; i < len(pixels); i++ {
		pixels[i] = 0xff
	}

	return &FontAtlas{
		Width:  w,
		Height: h,
		Pixels: pixels,
		face:   face,
		whiteUV: Vec2{
			X: 0.5,
			Y: (float32(glyphsH) + whiteRows/2.0) / float32(h),
		},
	}
}

// WhiteUV returns the texture coordinate of an opaque white texel.
func (a *FontAtlas) WhiteUV() Vec2 { return a.whiteUV }

// LineHeight returns the height of one line of text in virtual pixels.
func (a *FontAtlas) LineHeight() float32 { return float32(a.face.Height) }

// Advance returns the horizontal advance of one glyph in virtual pixels.
func (a *FontAtlas) Advance() float32 { return float32(a.face.Advance) }

// glyph returns the UV rectangle of r, falling back to '?' for runes the face
// does not cover.
func (a *FontAtlas) glyph(r rune) (uv Rect, ok bool) {
	for _, rr := range a.face.Ranges {
		if r < rr.Low || r >= rr.High {
			continue
		}
		y0 := (int(r-rr.Low) + rr.Offset) * a.face.Height
		return Rect{
			Min: Vec2{X: 0, Y: float32(y0) / float32(a.Height)},
			Max: Vec2{
				X: float32(a.face.Width) / float32(a.Width),
				Y: float32(y0+a.face.Height) / float32(a.Height),
			},
		}, true
	}
	if r != '?' {
		return a.glyph('?')
	}
	return Rect{}, false
}
