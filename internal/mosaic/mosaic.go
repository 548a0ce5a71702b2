// Package mosaic splits a screen area into rects for windows that did not ask
// for a position.
package mosaic

import "github.com/ItsNotGoodName/porthole/internal/geom"

type (
	Mosaic struct {
		rects  []geom.Rect
		layout Layout
	}

	Layout interface {
		Count() int
		Update(rects []geom.Rect, area geom.Rect)
	}
)

func NewMosaic(layout Layout) Mosaic {
	m := Mosaic{}
	m.SetLayout(layout)
	return m
}

func (m *Mosaic) SetLayout(layout Layout) {
	m.layout = layout
	m.rects = make([]geom.Rect, layout.Count())
}

func (m *Mosaic) Count() int {
	return len(m.rects)
}

// Rects lays out the slots inside area. The returned slice is reused by the
// next call.
func (m *Mosaic) Rects(area geom.Rect) []geom.Rect {
	m.layout.Update(m.rects, area)
	return m.rects
}

// ForCount picks the smallest layout with at least count slots.
func ForCount(count int) Layout {
	switch {
	case count <= 1:
		return Layout1x1{}
	case count <= 4:
		return Layout2x2{}
	default:
		return NewLayoutGridCount(count)
	}
}
