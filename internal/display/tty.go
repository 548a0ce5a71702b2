package display

import (
	"context"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
	"github.com/gdamore/tcell/v2"
	"github.com/thejerf/suture/v4"
)

// TTY shows the device in a terminal, two pixel rows per cell, and reads the
// terminal mouse.
type TTY struct {
	device *Device
	queue  *mouse.Queue
	frames *bus.Hub[porthole.Frame]
}

func NewTTY(device *Device, queue *mouse.Queue, frames *bus.Hub[porthole.Frame]) TTY {
	return TTY{
		device: device,
		queue:  queue,
		frames: frames,
	}
}

func (TTY) String() string {
	return "display.TTY"
}

func (t TTY) Serve(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	screen.EnableMouse()
	screen.HideCursor()

	frameC, unsubscribe := t.frames.Subscribe(ctx)
	defer unsubscribe()

	eventC := make(chan tcell.Event, 64)
	go func() {
		defer close(eventC)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventC <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var p cellPointer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-frameC:
			t.scanout(screen)
		case ev, ok := <-eventC:
			if !ok {
				return ctx.Err()
			}

			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
					return suture.ErrTerminateSupervisorTree
				}
			case *tcell.EventMouse:
				cols, rows := screen.Size()
				x, y := ev.Position()
				if e, ok := p.update(x, y, ev.Buttons(), t.scale(cols, rows)); ok {
					push(t.queue, e)
				}
			}
		}
	}
}

type cellScale struct {
	// Pixels per cell.
	x, y int
}

func (t TTY) scale(cols, rows int) cellScale {
	boot := t.device.Boot()
	return cellScale{
		x: max(boot.Width/max(cols, 1), 1),
		y: max(boot.Height/max(rows, 1), 1),
	}
}

func (t TTY) scanout(screen tcell.Screen) {
	cols, rows := screen.Size()
	boot := t.device.Boot()

	for cy := 0; cy < rows; cy++ {
		top := cy * 2 * boot.Height / (rows * 2)
		bottom := (cy*2 + 1) * boot.Height / (rows * 2)
		for cx := 0; cx < cols; cx++ {
			x := cx * boot.Width / cols
			style := tcell.StyleDefault.
				Foreground(cellColor(t.device.Pixel(x, top))).
				Background(cellColor(t.device.Pixel(x, bottom)))
			screen.SetContent(cx, cy, '▀', nil, style)
		}
	}
	screen.Show()
}

func cellColor(c fb.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R()), int32(c.G()), int32(c.B()))
}

// cellPointer turns terminal cell positions into relative mouse events.
type cellPointer struct {
	x, y int
	seen bool
}

func (p *cellPointer) update(x, y int, mask tcell.ButtonMask, scale cellScale) (mouse.Event, bool) {
	e := mouse.Event{
		Kind: mouse.KindMove,
		Buttons: mouse.Buttons{
			Left:   mask&tcell.Button1 != 0,
			Right:  mask&tcell.Button2 != 0,
			Middle: mask&tcell.Button3 != 0,
			Fourth: mask&tcell.Button4 != 0,
			Fifth:  mask&tcell.Button5 != 0,
		},
		Scroll: mouse.Scroll{
			Up:   mask&tcell.WheelUp != 0,
			Down: mask&tcell.WheelDown != 0,
		},
	}

	if !p.seen {
		p.x, p.y, p.seen = x, y, true
		return e, e.Buttons != (mouse.Buttons{}) || e.Scroll != (mouse.Scroll{})
	}

	e.DX = (x - p.x) * scale.x
	e.DY = (p.y - y) * scale.y
	p.x, p.y = x, y
	return e, true
}
