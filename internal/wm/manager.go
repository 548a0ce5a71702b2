// Package wm composites independently drawn windows onto the display.
//
// Windows belong to the tasks that create them. The Manager keeps weak
// references in creation order, which is also paint order: later windows
// cover earlier ones. Every Update copies each window into the back buffer
// and then clears the window, so owners redraw before each frame.
//
// Locks are taken in this order: Manager.frameMu, Manager.mu, then window
// locks one at a time in registry order. No two window locks are held at
// once. WindowPruned is published with no manager lock held, so subscribers
// may call back into the Manager.
package wm

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"weak"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/ItsNotGoodName/porthole/internal/font"
	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/hal"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/google/uuid"
)

const (
	DefaultCursorX    = 200
	DefaultCursorY    = 200
	DefaultDragMargin = 20
)

type Options struct {
	Boot hal.BootGraphics
	// Cursor is the initial cursor position.
	Cursor image.Point
	// DragMargin decides when a dragged window has left the screen.
	DragMargin int
	Font       *font.Font
}

func DefaultOptions(boot hal.BootGraphics) Options {
	return Options{
		Boot:       boot,
		Cursor:     image.Pt(DefaultCursorX, DefaultCursorY),
		DragMargin: DefaultDragMargin,
		Font:       font.Basic(),
	}
}

// WindowPruned is published when a dead window is dropped from the registry.
type WindowPruned struct {
	ID uuid.UUID
}

// Stats describes one compositing pass.
type Stats struct {
	Windows int
	Pruned  int
}

type entry struct {
	id  uuid.UUID
	ref weak.Pointer[Window]
}

type Manager struct {
	mapper     hal.Mapper
	font       *font.Font
	dragMargin int

	frameMu sync.Mutex
	front   *fb.FrameBuffer
	back    *fb.FrameBuffer

	mu       sync.Mutex
	registry []entry
	cursor   geom.Rect
}

// New maps the boot framebuffer and allocates a back buffer of the same size.
// The device memory can only be mapped once, so a second Manager on the same
// hardware fails.
func New(mapper hal.Mapper, opts Options) (*Manager, error) {
	if opts.Font == nil {
		opts.Font = font.Basic()
	}

	front, err := fb.NewDevice(mapper, opts.Boot)
	if err != nil {
		return nil, fmt.Errorf("front buffer: %w", err)
	}

	back, err := fb.New(mapper, opts.Boot.Width, opts.Boot.Height)
	if err != nil {
		return nil, fmt.Errorf("back buffer: %w", err)
	}

	// Keep the cursor on small screens.
	cursorX := max(min(opts.Cursor.X, opts.Boot.Width-CursorWidth), 0)
	cursorY := max(min(opts.Cursor.Y, opts.Boot.Height-CursorHeight), 0)

	return &Manager{
		mapper:     mapper,
		font:       opts.Font,
		dragMargin: opts.DragMargin,
		front:      front,
		back:       back,
		cursor:     geom.NewRect(cursorX, cursorY, CursorWidth, CursorHeight),
	}, nil
}

func (m *Manager) Width() int  { return m.back.Width() }
func (m *Manager) Height() int { return m.back.Height() }

func (m *Manager) Font() *font.Font {
	return m.font
}

// NewWindow creates a window at r and puts it on top. The caller owns the
// returned window.
func (m *Manager) NewWindow(r geom.Rect) (*Window, error) {
	w, err := newWindow(m.mapper, m.font, r)
	if err != nil {
		return nil, fmt.Errorf("new window %s: %w", r, err)
	}

	m.mu.Lock()
	m.registry = append(m.registry, entry{id: w.ID, ref: weak.Make(w)})
	m.mu.Unlock()

	slog.Debug("Created window", "package", "wm", "window", w.ID, "rect", r)

	return w, nil
}

// live returns the registered windows that are still alive in paint order
// and drops the rest. Callers publish the pruned IDs with publishPruned once
// no manager lock is held.
func (m *Manager) live() ([]*Window, []uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		windows = make([]*Window, 0, len(m.registry))
		pruned  []uuid.UUID
		kept    = m.registry[:0]
	)
	for _, e := range m.registry {
		w := e.ref.Value()
		if w == nil || w.Closed() {
			pruned = append(pruned, e.id)
			continue
		}
		kept = append(kept, e)
		windows = append(windows, w)
	}
	clear(m.registry[len(kept):])
	m.registry = kept

	return windows, pruned
}

func publishPruned(pruned []uuid.UUID) {
	for _, id := range pruned {
		slog.Debug("Pruned window", "package", "wm", "window", id)
		bus.Publish(WindowPruned{ID: id})
	}
}

// Windows returns the live windows in paint order.
func (m *Manager) Windows() []*Window {
	windows, pruned := m.live()
	publishPruned(pruned)
	return windows
}

// Window finds a live window by ID.
func (m *Manager) Window(id uuid.UUID) (*Window, bool) {
	for _, w := range m.Windows() {
		if w.ID == id {
			return w, true
		}
	}
	return nil, false
}

func (m *Manager) Cursor() geom.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Update composites every window and the cursor into the back buffer. Each
// window's buffer is cleared after it is copied.
func (m *Manager) Update() Stats {
	stats, pruned := m.update()
	publishPruned(pruned)
	return stats
}

func (m *Manager) update() (Stats, []uuid.UUID) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()

	windows, pruned := m.live()

	m.back.Clear()
	for _, w := range windows {
		w.mu.Lock()
		m.back.Blit(w.surface, w.rect.X, w.rect.Y)
		w.surface.Clear()
		w.mu.Unlock()
	}

	cursor := m.Cursor()
	drawCursor(m.back, cursor.X, cursor.Y)

	return Stats{Windows: len(windows), Pruned: len(pruned)}, pruned
}

// Render copies the back buffer to the display.
func (m *Manager) Render() {
	m.frameMu.Lock()
	m.front.CopyFrom(m.back)
	m.frameMu.Unlock()
}

// Snapshot returns a copy of what the display shows.
func (m *Manager) Snapshot() *image.RGBA {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	return m.front.RGBA()
}

// FrontPixel reads the display at (x, y). It returns false outside the screen.
func (m *Manager) FrontPixel(x, y int) (fb.Color, bool) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	if !geom.NewRect(0, 0, m.front.Width(), m.front.Height()).Contains(x, y) {
		return 0, false
	}
	return m.front.Pixel(x, y), true
}

// UpdateMousePosition moves the cursor by (dx, -dy). An axis whose move would
// put any part of the cursor off screen keeps its old value.
func (m *Manager) UpdateMousePosition(dx, dy int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	width, height := m.back.Width(), m.back.Height()

	x := m.cursor.X + dx
	if x < 0 || x+m.cursor.Width > width {
		x = m.cursor.X
	}

	y := m.cursor.Y - dy
	if y < 0 || y+m.cursor.Height > height {
		y = m.cursor.Y
	}

	m.cursor.X, m.cursor.Y = x, y
}

// SetCursor places the cursor at (x, y) if it fits on screen.
func (m *Manager) SetCursor(x, y int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if x < 0 || y < 0 || x+m.cursor.Width > m.back.Width() || y+m.cursor.Height > m.back.Height() {
		return false
	}
	m.cursor.X, m.cursor.Y = x, y
	return true
}

// DragWindows acts on every window under the cursor. With the left button
// held the windows move by (dx, -dy); an axis whose move would leave less
// than the drag margin on screen, or push the top edge above the screen,
// keeps its old value. With the right button held the windows grow by
// (dx, -dy) and are reallocated on their next Fill. It returns the number of
// windows touched.
func (m *Manager) DragWindows(dx, dy int, buttons mouse.Buttons) int {
	if !buttons.Left && !buttons.Right {
		return 0
	}

	cursor := m.Cursor()
	width, height := m.back.Width(), m.back.Height()
	margin := m.dragMargin

	touched := 0
	for _, w := range m.Windows() {
		w.mu.Lock()
		if !w.rect.Collides(cursor) {
			w.mu.Unlock()
			continue
		}
		touched++

		if buttons.Left {
			next := w.rect.Translate(dx, -dy)
			if next.X < -margin || next.X+margin > width {
				next.X = w.rect.X
			}
			if next.Y < 0 || next.Y+margin > height {
				next.Y = w.rect.Y
			}
			w.rect = next
		} else {
			w.resize(w.rect.Width+dx, w.rect.Height-dy)
		}
		w.mu.Unlock()
	}

	return touched
}
