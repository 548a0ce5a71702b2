// xcursor creates X cursors, forked from https://github.com/BurntSushi/xgbutil/blob/master/xcursor/xcursor.go
package xcursor

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Crosshair is a glyph in the standard X cursor font.
const Crosshair = 34

func CreateCursor(x *xgb.Conn, cursor uint16) (xproto.Cursor, error) {
	return CreateCursorExtra(x, cursor, 0xffff, 0xffff, 0xffff, 0, 0, 0)
}

func CreateCursorExtra(x *xgb.Conn, cursor, foreRed, foreGreen,
	foreBlue, backRed, backGreen, backBlue uint16) (xproto.Cursor, error) {

	fontId, err := xproto.NewFontId(x)
	if err != nil {
		return 0, err
	}

	cursorId, err := xproto.NewCursorId(x)
	if err != nil {
		return 0, err
	}

	err = xproto.OpenFontChecked(x, fontId,
		uint16(len("cursor")), "cursor").Check()
	if err != nil {
		return 0, err
	}

	err = xproto.CreateGlyphCursorChecked(x, cursorId, fontId, fontId,
		cursor, cursor+1,
		foreRed, foreGreen, foreBlue,
		backRed, backGreen, backBlue).Check()
	if err != nil {
		return 0, err
	}

	err = xproto.CloseFontChecked(x, fontId).Check()
	if err != nil {
		return 0, err
	}

	return cursorId, nil
}

// CreateBlankCursor returns an invisible cursor. The compositor draws its own
// pointer, so the host one is hidden over its window.
func CreateBlankCursor(x *xgb.Conn, drawable xproto.Drawable) (xproto.Cursor, error) {
	pixmapId, err := xproto.NewPixmapId(x)
	if err != nil {
		return 0, err
	}

	cursorId, err := xproto.NewCursorId(x)
	if err != nil {
		return 0, err
	}

	if err := xproto.CreatePixmapChecked(x, 1, pixmapId, drawable, 1, 1).Check(); err != nil {
		return 0, err
	}
	defer xproto.FreePixmap(x, pixmapId)

	if err := xproto.CreateCursorChecked(x, cursorId, pixmapId, pixmapId,
		0, 0, 0,
		0, 0, 0,
		0, 0).Check(); err != nil {
		return 0, err
	}

	return cursorId, nil
}
