package mosaic

import "github.com/ItsNotGoodName/porthole/internal/geom"

type Layout2x2 struct{}

func (l Layout2x2) Count() int {
	return 4
}

func (l Layout2x2) Update(rects []geom.Rect, area geom.Rect) {
	hw, hh := area.Width/2, area.Height/2
	x, y := area.X, area.Y
	rects[0] = geom.NewRect(x, y, hw, hh)
	rects[1] = geom.NewRect(x+hw, y, area.Width-hw, hh)
	rects[2] = geom.NewRect(x, y+hh, hw, area.Height-hh)
	rects[3] = geom.NewRect(x+hw, y+hh, area.Width-hw, area.Height-hh)
}
