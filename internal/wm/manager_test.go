package wm

import (
	"context"
	"errors"
	"image"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/hal"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/google/uuid"
)

const testFramebufferAddress hal.PhysAddr = 0xfd000000

func newTestManager(t *testing.T, width, height int) (*Manager, *hal.HostMemory) {
	t.Helper()
	return newTestManagerWithLimit(t, width, height, 0)
}

func newTestManagerWithLimit(t *testing.T, width, height, limit int) (*Manager, *hal.HostMemory) {
	t.Helper()

	mem := hal.NewHostMemory(limit)
	boot := hal.BootGraphics{PhysAddr: testFramebufferAddress, Width: width, Height: height}
	if _, err := mem.AddDevice(boot.PhysAddr, boot.Size()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := New(mem, DefaultOptions(boot))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m, mem
}

func newTestWindow(t *testing.T, m *Manager, r geom.Rect) *Window {
	t.Helper()
	w, err := m.NewWindow(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return w
}

func frontPixel(t *testing.T, m *Manager, x, y int) fb.Color {
	t.Helper()
	c, ok := m.FrontPixel(x, y)
	if !ok {
		t.Fatalf("(%d, %d) is off screen", x, y)
	}
	return c
}

func TestManager_EndToEnd(t *testing.T) {
	m, _ := newTestManager(t, 800, 600)
	w := newTestWindow(t, m, geom.NewRect(0, 0, 100, 100))

	w.Fill(0x112233)
	local, _ := w.Pixel(50, 50)
	m.Update()
	m.Render()

	if got := frontPixel(t, m, 50, 50); got != local || got != 0x112233 {
		t.Fatalf("front (50, 50) = %v, want %v", got, local)
	}

	m.UpdateMousePosition(-160, 160)
	if got := m.Cursor(); got.X != 40 || got.Y != 40 {
		t.Fatalf("cursor = %v, want (40, 40)", got)
	}

	if n := m.DragWindows(10, 5, mouse.Buttons{Left: true}); n != 1 {
		t.Fatalf("dragged %d windows, want 1", n)
	}
	if got, want := w.Rect(), geom.NewRect(10, 0, 100, 100); got != want {
		t.Fatalf("rect = %v, want %v", got, want)
	}
}

func TestManager_NewTwice(t *testing.T) {
	_, mem := newTestManager(t, 16, 16)

	boot := hal.BootGraphics{PhysAddr: testFramebufferAddress, Width: 16, Height: 16}
	if _, err := New(mem, DefaultOptions(boot)); !errors.Is(err, hal.ErrAlreadyMapped) {
		t.Fatalf("expected ErrAlreadyMapped, got %v", err)
	}
}

func TestManager_NewInvalidAddress(t *testing.T) {
	_, err := New(hal.NewHostMemory(0), DefaultOptions(hal.BootGraphics{Width: 16, Height: 16}))
	if !errors.Is(err, hal.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestManager_NewWindowZeroSize(t *testing.T) {
	m, _ := newTestManager(t, 16, 16)
	if _, err := m.NewWindow(geom.NewRect(0, 0, 0, 5)); !errors.Is(err, hal.ErrBadLength) {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
}

func TestManager_Occlusion(t *testing.T) {
	m, _ := newTestManager(t, 100, 100)
	m.SetCursor(80, 80)

	a := newTestWindow(t, m, geom.NewRect(10, 10, 30, 30))
	b := newTestWindow(t, m, geom.NewRect(20, 20, 30, 30))

	a.Fill(0xaa0000)
	b.Fill(0x00bb00)
	m.Update()
	m.Render()

	tests := []struct {
		x, y int
		want fb.Color
	}{
		{15, 15, 0xaa0000},
		{25, 25, 0x00bb00},
		{39, 39, 0x00bb00},
		{45, 45, 0x00bb00},
		{5, 5, fb.Black},
	}
	for _, tt := range tests {
		if got := frontPixel(t, m, tt.x, tt.y); got != tt.want {
			t.Errorf("front (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestManager_DrawThenConsume(t *testing.T) {
	m, _ := newTestManager(t, 64, 64)
	m.SetCursor(50, 40)
	w := newTestWindow(t, m, geom.NewRect(-5, 4, 20, 20))

	w.Fill(0x123456)
	m.Update()
	m.Render()
	first := m.Snapshot()

	if got := frontPixel(t, m, 0, 10); got != 0x123456 {
		t.Fatalf("front (0, 10) = %v, want window color", got)
	}
	if c, _ := w.Pixel(0, 0); c != fb.Black {
		t.Fatalf("window buffer not cleared after update: %v", c)
	}

	// Same content redrawn: same frame.
	w.Fill(0x123456)
	m.Update()
	m.Render()
	if !equalImages(first, m.Snapshot()) {
		t.Fatalf("frame changed without new content")
	}

	// No redraw: the window shows up blank.
	m.Update()
	m.Render()
	if got := frontPixel(t, m, 0, 10); got != fb.Black {
		t.Fatalf("front (0, 10) = %v, want black", got)
	}
}

func equalImages(a, b *image.RGBA) bool {
	if a.Rect != b.Rect || len(a.Pix) != len(b.Pix) {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}

func TestManager_CursorOverlay(t *testing.T) {
	m, _ := newTestManager(t, 64, 64)
	m.SetCursor(10, 10)
	w := newTestWindow(t, m, geom.NewRect(0, 0, 64, 64))

	w.Fill(0x333333)
	m.Update()
	m.Render()

	if got := frontPixel(t, m, 10, 10); got != fb.White {
		t.Fatalf("cursor tip = %v, want white", got)
	}
	if got := frontPixel(t, m, 11, 12); got != fb.Black {
		t.Fatalf("cursor body = %v, want black", got)
	}
	// Transparent cell at [0][16].
	if got := frontPixel(t, m, 10, 26); got != 0x333333 {
		t.Fatalf("transparent cursor cell = %v, want window color", got)
	}
	if got := frontPixel(t, m, 30, 30); got != 0x333333 {
		t.Fatalf("outside cursor = %v, want window color", got)
	}
}

func TestManager_RenderOnlyChangesFront(t *testing.T) {
	m, _ := newTestManager(t, 32, 32)
	w := newTestWindow(t, m, geom.NewRect(0, 0, 8, 8))

	w.Fill(0x445566)
	m.Update()
	if got := frontPixel(t, m, 4, 4); got != fb.Black {
		t.Fatalf("front changed before render: %v", got)
	}
	m.Render()
	if got := frontPixel(t, m, 4, 4); got != 0x445566 {
		t.Fatalf("front (4, 4) = %v after render", got)
	}
}

func TestManager_PruneClosed(t *testing.T) {
	m, mem := newTestManager(t, 32, 32)
	before := mem.Used()

	var (
		mu     sync.Mutex
		pruned []uuid.UUID
	)
	bus.Subscribe("test", func(ctx context.Context, event WindowPruned) error {
		mu.Lock()
		pruned = append(pruned, event.ID)
		mu.Unlock()
		return nil
	})

	a := newTestWindow(t, m, geom.NewRect(0, 0, 8, 8))
	b := newTestWindow(t, m, geom.NewRect(8, 0, 8, 8))

	a.Close()
	if err := a.Resize(4, 4); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed, got %v", err)
	}
	a.Fill(fb.White)
	a.DrawAbsolute(1, 1, fb.White)

	b.Fill(0x010203)
	stats := m.Update()
	if stats.Windows != 1 || stats.Pruned != 1 {
		t.Fatalf("stats = %+v, want 1 window 1 pruned", stats)
	}
	if windows := m.Windows(); len(windows) != 1 || windows[0] != b {
		t.Fatalf("registry = %v", windows)
	}
	if used := mem.Used(); used != before+8*8*4 {
		t.Fatalf("used = %d, want %d", used, before+8*8*4)
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, id := range pruned {
		found = found || id == a.ID
	}
	if !found {
		t.Fatalf("no WindowPruned event for %s", a.ID)
	}
}

func TestManager_PruneSubscriberCallsManager(t *testing.T) {
	m, _ := newTestManager(t, 32, 32)

	bus.Subscribe("test", func(ctx context.Context, event WindowPruned) error {
		m.Cursor()
		m.Windows()
		m.SetCursor(0, 0)
		return nil
	})

	w := newTestWindow(t, m, geom.NewRect(0, 0, 8, 8))
	w.Close()

	doneC := make(chan Stats, 1)
	go func() { doneC <- m.Update() }()

	select {
	case stats := <-doneC:
		if stats.Pruned != 1 {
			t.Fatalf("stats = %+v, want 1 pruned", stats)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Update did not return")
	}

	if cursor := m.Cursor(); cursor.X != 0 || cursor.Y != 0 {
		t.Fatalf("cursor = %s, want at origin", cursor)
	}
}

func TestManager_PruneCollected(t *testing.T) {
	m, _ := newTestManager(t, 32, 32)

	func() {
		w := newTestWindow(t, m, geom.NewRect(0, 0, 8, 8))
		w.Fill(fb.White)
	}()
	kept := newTestWindow(t, m, geom.NewRect(8, 8, 8, 8))

	var stats Stats
	for i := 0; i < 10; i++ {
		runtime.GC()
		stats = m.Update()
		if stats.Windows == 1 {
			break
		}
	}
	if stats.Windows != 1 {
		t.Fatalf("dropped window still composited: %+v", stats)
	}
	runtime.KeepAlive(kept)
}

func TestManager_UpdateMousePosition(t *testing.T) {
	tests := []struct {
		name   string
		start  image.Point
		dx, dy int
		want   image.Point
	}{
		{"inside", image.Pt(100, 50), 5, 7, image.Pt(105, 43)},
		{"right edge exact", image.Pt(100, 50), 89, 0, image.Pt(189, 50)},
		{"past right edge", image.Pt(100, 50), 90, 3, image.Pt(100, 47)},
		{"past left edge", image.Pt(2, 50), -3, 0, image.Pt(2, 50)},
		{"to left edge", image.Pt(2, 50), -2, 0, image.Pt(0, 50)},
		{"past top edge", image.Pt(50, 2), 1, 3, image.Pt(51, 2)},
		{"past bottom edge", image.Pt(50, 80), 1, -3, image.Pt(51, 80)},
		{"to bottom edge", image.Pt(50, 80), 0, -2, image.Pt(50, 82)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, 200, 100)
			if !m.SetCursor(tt.start.X, tt.start.Y) {
				t.Fatalf("SetCursor(%v) rejected", tt.start)
			}
			m.UpdateMousePosition(tt.dx, tt.dy)
			if got := m.Cursor(); got.X != tt.want.X || got.Y != tt.want.Y {
				t.Fatalf("cursor = (%d, %d), want %v", got.X, got.Y, tt.want)
			}
		})
	}
}

func TestManager_DragLeft(t *testing.T) {
	m, _ := newTestManager(t, 200, 200)
	m.SetCursor(50, 50)

	hit := newTestWindow(t, m, geom.NewRect(40, 40, 30, 30))
	miss := newTestWindow(t, m, geom.NewRect(120, 120, 30, 30))
	touching := newTestWindow(t, m, geom.NewRect(61, 50, 10, 10))

	if n := m.DragWindows(5, -5, mouse.Buttons{Left: true}); n != 1 {
		t.Fatalf("dragged %d windows, want 1", n)
	}
	if got, want := hit.Rect(), geom.NewRect(45, 45, 30, 30); got != want {
		t.Fatalf("hit = %v, want %v", got, want)
	}
	if got, want := miss.Rect(), geom.NewRect(120, 120, 30, 30); got != want {
		t.Fatalf("miss = %v, want %v", got, want)
	}
	if got, want := touching.Rect(), geom.NewRect(61, 50, 10, 10); got != want {
		t.Fatalf("touching = %v, want %v", got, want)
	}
	if hit.State() != Stable {
		t.Fatalf("drag changed resize state")
	}
}

func TestManager_DragMargin(t *testing.T) {
	tests := []struct {
		name   string
		rect   geom.Rect
		dx, dy int
		want   geom.Rect
	}{
		{"left within margin", geom.NewRect(0, 50, 50, 50), -20, 0, geom.NewRect(-20, 50, 50, 50)},
		{"left past margin", geom.NewRect(0, 50, 50, 50), -21, 0, geom.NewRect(0, 50, 50, 50)},
		{"right within margin", geom.NewRect(150, 50, 50, 50), 30, 0, geom.NewRect(180, 50, 50, 50)},
		{"right past margin", geom.NewRect(150, 50, 50, 50), 31, 0, geom.NewRect(150, 50, 50, 50)},
		{"top", geom.NewRect(50, 3, 50, 50), 0, 4, geom.NewRect(50, 3, 50, 50)},
		{"bottom within margin", geom.NewRect(50, 150, 50, 50), 0, -30, geom.NewRect(50, 180, 50, 50)},
		{"bottom past margin", geom.NewRect(50, 150, 50, 50), 0, -31, geom.NewRect(50, 150, 50, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, 200, 200)
			m.SetCursor(tt.rect.X+2, tt.rect.Y+2)
			w := newTestWindow(t, m, tt.rect)

			m.DragWindows(tt.dx, tt.dy, mouse.Buttons{Left: true})
			if got := w.Rect(); got != tt.want {
				t.Fatalf("rect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_DragRightResizes(t *testing.T) {
	m, _ := newTestManager(t, 200, 200)
	m.SetCursor(50, 50)
	w := newTestWindow(t, m, geom.NewRect(40, 40, 30, 30))
	w.Fill(0x222222)

	if n := m.DragWindows(10, -5, mouse.Buttons{Right: true}); n != 1 {
		t.Fatalf("resized %d windows, want 1", n)
	}
	if got, want := w.Rect(), geom.NewRect(40, 40, 40, 35); got != want {
		t.Fatalf("rect = %v, want %v", got, want)
	}
	if w.State() != PendingResize {
		t.Fatalf("state = %v, want %v", w.State(), PendingResize)
	}
	if _, ok := w.Pixel(35, 0); ok {
		t.Fatalf("buffer reallocated before Fill")
	}

	w.Fill(0x222222)
	if w.State() != Stable {
		t.Fatalf("state = %v after Fill, want %v", w.State(), Stable)
	}
	if c, ok := w.Pixel(39, 34); !ok || c != 0x222222 {
		t.Fatalf("Pixel(39, 34) = %v, %v after Fill", c, ok)
	}
}

func TestManager_DragLeftWinsOverRight(t *testing.T) {
	m, _ := newTestManager(t, 200, 200)
	m.SetCursor(50, 50)
	w := newTestWindow(t, m, geom.NewRect(40, 40, 30, 30))

	m.DragWindows(1, 0, mouse.Buttons{Left: true, Right: true})
	if got, want := w.Rect(), geom.NewRect(41, 40, 30, 30); got != want {
		t.Fatalf("rect = %v, want %v", got, want)
	}
	if w.State() != Stable {
		t.Fatalf("left drag also resized")
	}

	if n := m.DragWindows(1, 0, mouse.Buttons{Middle: true}); n != 0 {
		t.Fatalf("middle button touched %d windows", n)
	}
}

func TestManager_ResizeClampsAndFailsSoft(t *testing.T) {
	m, _ := newTestManagerWithLimit(t, 10, 10, 10*10*4+4*4*4+100)
	m.SetCursor(0, 0)
	w := newTestWindow(t, m, geom.NewRect(0, 0, 4, 4))

	if err := w.Resize(-5, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := w.Rect(); got.Width != 1 || got.Height != 1 {
		t.Fatalf("rect = %v, want 1x1", got)
	}

	if err := w.Resize(10, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.Fill(fb.White)
	if w.State() != PendingResize {
		t.Fatalf("state = %v after failed reallocation", w.State())
	}
	if c, ok := w.Pixel(3, 3); !ok || c != fb.White {
		t.Fatalf("old buffer not kept: %v, %v", c, ok)
	}

	if err := w.Resize(4, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.State() != Stable {
		t.Fatalf("resize back to buffer size left state %v", w.State())
	}
}

func TestManager_WindowLookup(t *testing.T) {
	m, _ := newTestManager(t, 32, 32)
	w := newTestWindow(t, m, geom.NewRect(0, 0, 8, 8))

	if got, ok := m.Window(w.ID); !ok || got != w {
		t.Fatalf("Window(%s) = %v, %v", w.ID, got, ok)
	}
	if _, ok := m.Window(uuid.New()); ok {
		t.Fatalf("found unknown window")
	}
}
