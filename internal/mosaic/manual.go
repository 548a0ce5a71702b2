package mosaic

import "github.com/ItsNotGoodName/porthole/internal/geom"

// LayoutManualWindow is a slot given as fractions of the area.
type LayoutManualWindow struct {
	X float32
	Y float32
	W float32
	H float32
}

type LayoutManual struct {
	windows []LayoutManualWindow
}

func NewLayoutManual(windows []LayoutManualWindow) LayoutManual {
	return LayoutManual{
		windows: windows,
	}
}

func (l LayoutManual) Count() int {
	return len(l.windows)
}

func (l LayoutManual) Update(rects []geom.Rect, area geom.Rect) {
	w, h := float32(area.Width), float32(area.Height)
	for i := range rects {
		x0 := int(l.windows[i].X * w)
		y0 := int(l.windows[i].Y * h)
		x1 := int((l.windows[i].X + l.windows[i].W) * w)
		y1 := int((l.windows[i].Y + l.windows[i].H) * h)
		rects[i] = geom.NewRect(area.X+x0, area.Y+y0, x1-x0, y1-y0)
	}
}
