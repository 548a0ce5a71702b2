package wm

import "github.com/ItsNotGoodName/porthole/internal/fb"

const (
	CursorWidth  = 11
	CursorHeight = 18

	// cursorKey marks transparent cells of the cursor image.
	cursorKey fb.Color = 0xff0000
)

// cursorImage is indexed [x][y].
var cursorImage = func() [CursorWidth][CursorHeight]fb.Color {
	const (
		T = cursorKey
		C = fb.Black
		B = fb.White
	)
	return [CursorWidth][CursorHeight]fb.Color{
		{B, B, B, B, B, B, B, B, B, B, B, B, B, B, B, B, T, T},
		{T, B, C, C, C, C, C, C, C, C, C, C, C, C, B, T, T, T},
		{T, T, B, C, C, C, C, C, C, C, C, C, C, B, T, T, T, T},
		{T, T, T, B, C, C, C, C, C, C, C, C, B, T, T, T, T, T},
		{T, T, T, T, B, C, C, C, C, C, C, C, C, B, B, T, T, T},
		{T, T, T, T, T, B, C, C, C, C, C, C, C, C, C, B, B, T},
		{T, T, T, T, T, T, B, C, C, C, C, B, B, C, C, C, C, B},
		{T, T, T, T, T, T, T, B, C, C, B, T, T, B, B, C, B, T},
		{T, T, T, T, T, T, T, T, B, C, B, T, T, T, T, B, B, T},
		{T, T, T, T, T, T, T, T, T, B, B, T, T, T, T, T, T, T},
		{T, T, T, T, T, T, T, T, T, T, B, T, T, T, T, T, T, T},
	}
}()

func drawCursor(dst *fb.FrameBuffer, x, y int) {
	for cx := 0; cx < CursorWidth; cx++ {
		for cy := 0; cy < CursorHeight; cy++ {
			if c := cursorImage[cx][cy]; c != cursorKey {
				dst.DrawPixel(x+cx, y+cy, c)
			}
		}
	}
}
