package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/build"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
	"github.com/ItsNotGoodName/porthole/internal/xcursor"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/thejerf/suture/v4"
)

// X11 shows the device in an X window and reads the pointer over it.
type X11 struct {
	device  *Device
	queue   *mouse.Queue
	frames  *bus.Hub[porthole.Frame]
	display string
}

func NewX11(device *Device, queue *mouse.Queue, frames *bus.Hub[porthole.Frame], display string) X11 {
	return X11{
		device:  device,
		queue:   queue,
		frames:  frames,
		display: display,
	}
}

func (X11) String() string {
	return "display.X11"
}

type x11Window struct {
	wid      xproto.Window
	gc       xproto.Gcontext
	depth    byte
	maxBytes int
}

func (x X11) Serve(ctx context.Context) error {
	conn, err := xgb.NewConnDisplay(x.display)
	if err != nil {
		return err
	}
	defer conn.Close()

	win, err := x.createWindow(conn)
	if err != nil {
		return err
	}
	defer xproto.DestroyWindow(conn, win.wid)

	frameC, unsubscribe := x.frames.Subscribe(ctx)
	defer unsubscribe()

	eventC := make(chan xgb.Event)
	go receiveEvents(ctx, conn, eventC)

	var p pointer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-frameC:
			x.scanout(conn, win)
		case ev, ok := <-eventC:
			if !ok {
				return errors.New("x11 connection closed")
			}

			switch ev := ev.(type) {
			case xproto.ExposeEvent:
				x.scanout(conn, win)
			case xproto.MotionNotifyEvent:
				if e, ok := p.motion(int(ev.EventX), int(ev.EventY), ev.State); ok {
					push(x.queue, e)
				}
			case xproto.ButtonPressEvent:
				push(x.queue, p.button(byte(ev.Detail), true))
			case xproto.ButtonReleaseEvent:
				push(x.queue, p.button(byte(ev.Detail), false))
			case xproto.KeyPressEvent:
				// Escape
				if ev.Detail == 9 {
					return suture.ErrTerminateSupervisorTree
				}
			case xproto.DestroyNotifyEvent:
				return suture.ErrTerminateSupervisorTree
			}
		}
	}
}

func (x X11) createWindow(conn *xgb.Conn) (x11Window, error) {
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	if screen.RootDepth != 24 && screen.RootDepth != 32 {
		return x11Window{}, fmt.Errorf("unsupported root depth %d", screen.RootDepth)
	}

	boot := x.device.Boot()

	cursor, err := xcursor.CreateBlankCursor(conn, xproto.Drawable(screen.Root))
	if err != nil {
		slog.Warn("Failed to create blank cursor, using crosshair", "error", err)
		if cursor, err = xcursor.CreateCursor(conn, xcursor.Crosshair); err != nil {
			return x11Window{}, err
		}
	}

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return x11Window{}, err
	}

	if err := xproto.CreateWindowChecked(conn, screen.RootDepth,
		wid, screen.Root,
		0, 0, uint16(boot.Width), uint16(boot.Height), 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask|xproto.CwCursor, // 1, 2, 3
		[]uint32{
			0, // 1
			xproto.EventMaskExposure | xproto.EventMaskStructureNotify | xproto.EventMaskKeyPress |
				xproto.EventMaskPointerMotion | xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease, // 2
			uint32(cursor), // 3
		}).Check(); err != nil {
		return x11Window{}, err
	}

	title := build.Current.String()
	xproto.ChangeProperty(conn, xproto.PropModeReplace, wid, xproto.AtomWmName, xproto.AtomString, 8, uint32(len(title)), []byte(title))

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return x11Window{}, err
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(wid), xproto.GcGraphicsExposures, []uint32{0}).Check(); err != nil {
		return x11Window{}, err
	}

	if err := xproto.MapWindowChecked(conn, wid).Check(); err != nil {
		return x11Window{}, err
	}

	slog.Info("Opened X11 display", "width", boot.Width, "height", boot.Height)

	return x11Window{
		wid:   wid,
		gc:    gc,
		depth: screen.RootDepth,
		// PutImage request header is 24 bytes.
		maxBytes: int(setup.MaximumRequestLength)*4 - 24,
	}, nil
}

// scanout sends the device memory as a ZPixmap in row bands that fit one
// request. The byte layout of a native little-endian pixel matches a 24 bit
// TrueColor visual.
func (x X11) scanout(conn *xgb.Conn, win x11Window) {
	boot := x.device.Boot()
	mem := x.device.Scanout()
	stride := boot.Width * 4

	rows := max(win.maxBytes/stride, 1)
	for y := 0; y < boot.Height; y += rows {
		h := min(rows, boot.Height-y)
		xproto.PutImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(win.wid), win.gc,
			uint16(boot.Width), uint16(h), 0, int16(y), 0, 24,
			mem[y*stride:(y+h)*stride])
	}
}

func receiveEvents(ctx context.Context, conn *xgb.Conn, eventC chan<- xgb.Event) {
	defer close(eventC)

	for {
		ev, err := conn.WaitForEvent()
		if ev == nil && err == nil {
			slog.Debug("X11 event loop exit: no event or error")
			return
		}

		if err != nil {
			slog.Warn("X11 error", "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case eventC <- ev:
		}
	}
}

// pointer turns absolute X pointer reports into relative mouse events.
type pointer struct {
	x, y    int
	seen    bool
	buttons mouse.Buttons
}

func (p *pointer) motion(x, y int, state uint16) (mouse.Event, bool) {
	p.buttons.Left = state&xproto.KeyButMaskButton1 != 0
	p.buttons.Middle = state&xproto.KeyButMaskButton2 != 0
	p.buttons.Right = state&xproto.KeyButMaskButton3 != 0

	if !p.seen {
		p.x, p.y, p.seen = x, y, true
		return mouse.Event{}, false
	}

	e := mouse.Move(x-p.x, p.y-y, p.buttons)
	p.x, p.y = x, y
	return e, true
}

func (p *pointer) button(detail byte, pressed bool) mouse.Event {
	e := mouse.Move(0, 0, p.buttons)
	switch detail {
	case 1:
		p.buttons.Left = pressed
	case 2:
		p.buttons.Middle = pressed
	case 3:
		p.buttons.Right = pressed
	case 4:
		e.Scroll.Up = pressed
	case 5:
		e.Scroll.Down = pressed
	case 8:
		p.buttons.Fourth = pressed
	case 9:
		p.buttons.Fifth = pressed
	}
	e.Buttons = p.buttons
	return e
}
