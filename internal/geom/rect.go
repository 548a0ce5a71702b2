package geom

import "fmt"

// Rect is an axis-aligned rectangle. X and Y may be negative or lie past the
// screen; Width and Height are never negative.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewRect returns a rect at (x, y) with the given size. Negative sizes are
// clamped to zero.
func NewRect(x, y, width, height int) Rect {
	return Rect{
		X:      x,
		Y:      y,
		Width:  max(width, 0),
		Height: max(height, 0),
	}
}

func (r Rect) EndX() int {
	return r.X + r.Width
}

func (r Rect) EndY() int {
	return r.Y + r.Height
}

// Collides reports whether both axis intervals strictly overlap. Rects that
// only share an edge do not collide.
func (r Rect) Collides(other Rect) bool {
	return r.X < other.EndX() &&
		r.EndX() > other.X &&
		r.Y < other.EndY() &&
		r.EndY() > other.Y
}

// Contains reports whether the point lies inside the half-open rect.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.EndX() && y >= r.Y && y < r.EndY()
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Intersect returns the overlapping part of r and other. The second result is
// false when they do not overlap.
func (r Rect) Intersect(other Rect) (Rect, bool) {
	x0, y0 := max(r.X, other.X), max(r.Y, other.Y)
	x1, y1 := min(r.EndX(), other.EndX()), min(r.EndY(), other.EndY())
	if x0 >= x1 || y0 >= y1 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
