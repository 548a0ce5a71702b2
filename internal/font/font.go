package font

import (
	"image"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Font maps a byte to a bitmap of Height rows. Each row is one byte with the
// most significant bit as the leftmost pixel, so Width is at most 8.
type Font struct {
	Width  int
	Height int

	glyphs   [256][]byte
	fallback []byte
}

// New builds a font from a raw table. Missing entries render as fallback.
func New(width, height int, table map[byte][]byte, fallback []byte) *Font {
	f := &Font{Width: width, Height: height, fallback: pad(fallback, height)}
	for b, rows := range table {
		f.glyphs[b] = pad(rows, height)
	}
	return f
}

// Glyph returns the bitmap for b.
func (f *Font) Glyph(b byte) []byte {
	if g := f.glyphs[b]; g != nil {
		return g
	}
	return f.fallback
}

// Has reports whether b has its own glyph.
func (f *Font) Has(b byte) bool {
	return f.glyphs[b] != nil
}

// Set reports whether pixel (x, y) of the glyph for b is lit.
func (f *Font) Set(b byte, x, y int) bool {
	if x < 0 || x >= 8 || y < 0 || y >= f.Height {
		return false
	}
	return f.Glyph(b)[y]&(0x80>>uint(x)) != 0
}

func pad(rows []byte, height int) []byte {
	out := make([]byte, height)
	copy(out, rows)
	return out
}

// Basic returns the 7x13 font from x/image, packed into 8x13 cells. Printable
// ASCII has glyphs; everything else renders as the replacement glyph.
func Basic() *Font {
	face := basicfont.Face7x13
	height := face.Height

	table := make(map[byte][]byte)
	for r := rune(0x20); r < 0x7f; r++ {
		if rows, ok := rasterize(face, r, height); ok {
			table[byte(r)] = rows
		}
	}
	fallback, _ := rasterize(face, 0xfffd, height)

	return New(8, height, table, fallback)
}

func rasterize(face *basicfont.Face, r rune, height int) ([]byte, bool) {
	dot := fixed.P(0, face.Ascent)
	dr, mask, maskp, _, ok := face.Glyph(dot, r)
	if !ok {
		return nil, false
	}

	rows := make([]byte, height)
	for y := 0; y < dr.Dy(); y++ {
		if dr.Min.Y+y < 0 || dr.Min.Y+y >= height {
			continue
		}
		var row byte
		for x := 0; x < dr.Dx() && x < 8; x++ {
			if alphaAt(mask, maskp.X+x, maskp.Y+y) >= 0x80 {
				row |= 0x80 >> uint(x)
			}
		}
		rows[dr.Min.Y+y] = row
	}
	return rows, true
}

func alphaAt(mask image.Image, x, y int) uint32 {
	_, _, _, a := mask.At(x, y).RGBA()
	return a >> 8
}
