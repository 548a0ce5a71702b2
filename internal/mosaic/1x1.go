package mosaic

import "github.com/ItsNotGoodName/porthole/internal/geom"

type Layout1x1 struct{}

func (l Layout1x1) Count() int {
	return 1
}

func (l Layout1x1) Update(rects []geom.Rect, area geom.Rect) {
	rects[0] = area
}
