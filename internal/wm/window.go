package wm

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/ItsNotGoodName/porthole/internal/font"
	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/hal"
	"github.com/google/uuid"
)

var ErrWindowClosed = errors.New("window closed")

type ResizeState int

const (
	Stable ResizeState = iota
	// PendingResize means the rect changed size and the buffer is
	// reallocated by the next Fill.
	PendingResize
)

func (s ResizeState) String() string {
	switch s {
	case Stable:
		return "stable"
	case PendingResize:
		return "pending_resize"
	default:
		return "unknown"
	}
}

// Window is a drawing surface owned by the task that created it. The manager
// only keeps a weak reference, so dropping the last *Window or calling Close
// removes it from the screen.
type Window struct {
	ID uuid.UUID

	mu      sync.Mutex
	rect    geom.Rect
	surface *fb.FrameBuffer
	state   ResizeState
	mapper  hal.Mapper
	font    *font.Font
	closed  atomic.Bool
}

func newWindow(mapper hal.Mapper, ft *font.Font, r geom.Rect) (*Window, error) {
	surface, err := fb.New(mapper, r.Width, r.Height)
	if err != nil {
		return nil, err
	}

	w := &Window{
		ID:      uuid.New(),
		rect:    r,
		surface: surface,
		mapper:  mapper,
		font:    ft,
	}
	// surface keeps its address across resizes, so the cleanup always
	// releases the current buffer.
	runtime.AddCleanup(w, func(surface *fb.FrameBuffer) { surface.Release() }, surface)

	return w, nil
}

func (w *Window) Rect() geom.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rect
}

func (w *Window) State() ResizeState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Window) Closed() bool {
	return w.closed.Load()
}

// Close detaches the window from the manager and frees its buffer.
func (w *Window) Close() {
	if w.closed.Swap(true) {
		return
	}
	w.mu.Lock()
	w.surface.Release()
	w.mu.Unlock()
}

// DrawAbsolute writes at window-local coordinates.
func (w *Window) DrawAbsolute(x, y int, c fb.Color) {
	w.mu.Lock()
	w.drawAbsolute(x, y, c)
	w.mu.Unlock()
}

func (w *Window) drawAbsolute(x, y int, c fb.Color) {
	if x >= 0 && x < w.rect.Width && y >= 0 && y < w.rect.Height {
		w.surface.DrawPixel(x, y, c)
	}
}

// DrawRelative writes at screen coordinates.
func (w *Window) DrawRelative(x, y int, c fb.Color) {
	w.mu.Lock()
	w.drawAbsolute(x-w.rect.X, y-w.rect.Y, c)
	w.mu.Unlock()
}

// Pixel reads window-local (x, y) from the current buffer. It returns false
// outside the buffer.
func (w *Window) Pixel(x, y int) (fb.Color, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if x < 0 || y < 0 || x >= w.surface.Width() || y >= w.surface.Height() {
		return 0, false
	}
	return w.surface.Pixel(x, y), true
}

// Fill paints the whole surface, first reallocating it if a resize is pending.
func (w *Window) Fill(c fb.Color) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return
	}
	if w.state == PendingResize {
		w.reallocate()
	}
	w.surface.FillRect(w.surface.Bounds(), c)
}

func (w *Window) reallocate() {
	next, err := fb.New(w.mapper, w.rect.Width, w.rect.Height)
	if err != nil {
		slog.Warn("Failed to resize window", "package", "wm", "window", w.ID, "rect", w.rect, "error", err)
		return
	}
	w.surface.Release()
	*w.surface = *next
	w.state = Stable
}

// SetPosition moves the window without touching its buffer.
func (w *Window) SetPosition(x, y int) {
	w.mu.Lock()
	w.rect.X, w.rect.Y = x, y
	w.mu.Unlock()
}

// Resize changes the window size. Sizes below one pixel are raised to one.
// The buffer follows on the next Fill.
func (w *Window) Resize(width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return ErrWindowClosed
	}
	w.resize(width, height)
	return nil
}

func (w *Window) resize(width, height int) {
	w.rect.Width = max(width, 1)
	w.rect.Height = max(height, 1)
	if w.rect.Width != w.surface.Width() || w.rect.Height != w.surface.Height() {
		w.state = PendingResize
	} else {
		w.state = Stable
	}
}

// GridSize returns the number of text columns and lines that fit the window.
func (w *Window) GridSize() (columns, lines int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rect.Width / w.font.Width, w.rect.Height / w.font.Height
}

// RenderText draws text on the glyph grid starting at (column, line). A
// newline, or running past the last column, continues on the next line at
// the starting column. Drawing stops at the last line.
func (w *Window) RenderText(text string, fg, bg fb.Color, column, line int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	columns, lines := w.rect.Width/w.font.Width, w.rect.Height/w.font.Height
	if column < 0 || line < 0 || column >= columns || line >= lines {
		return
	}

	col, ln := column, line
	for i := 0; i < len(text); i++ {
		b := text[i]
		if b == '\n' {
			col, ln = column, ln+1
			if ln >= lines {
				return
			}
			continue
		}
		if col >= columns {
			col, ln = column, ln+1
			if ln >= lines {
				return
			}
		}
		w.drawGlyph(b, fg, bg, col, ln)
		col++
	}
}

func (w *Window) drawGlyph(b byte, fg, bg fb.Color, col, ln int) {
	ox, oy := col*w.font.Width, ln*w.font.Height
	for y := 0; y < w.font.Height; y++ {
		for x := 0; x < w.font.Width; x++ {
			c := bg
			if w.font.Set(b, x, y) {
				c = fg
			}
			w.drawAbsolute(ox+x, oy+y, c)
		}
	}
}
