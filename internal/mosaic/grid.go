package mosaic

import "github.com/ItsNotGoodName/porthole/internal/geom"

type LayoutGrid struct {
	xc int
	yc int
}

// NewLayoutGridCount grows columns then rows until count slots fit.
func NewLayoutGridCount(count int) LayoutGrid {
	xc, yc := 0, 0
	for xc*yc < count {
		xc++
		if xc*yc >= count {
			break
		}
		yc++
	}

	return NewLayoutGrid(xc, yc)
}

func NewLayoutGrid(xc, yc int) LayoutGrid {
	return LayoutGrid{
		xc: max(xc, 1),
		yc: max(yc, 1),
	}
}

func (l LayoutGrid) Count() int {
	return l.xc * l.yc
}

func (l LayoutGrid) Update(rects []geom.Rect, area geom.Rect) {
	fw := area.Width / l.xc
	fh := area.Height / l.yc

	for i := 0; i < l.yc; i++ {
		fy := area.Y + fh*i
		for j := 0; j < l.xc; j++ {
			fx := area.X + fw*j
			rects[i*l.xc+j] = geom.NewRect(fx, fy, fw, fh)
		}
	}
}
