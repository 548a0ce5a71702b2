// Package display emulates the display hardware and mouse driver on the host.
//
// A backend scans out the Device memory after every frame and turns host
// pointer input into relative mouse events on the compositor's queue.
package display

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
)

const (
	NameHeadless = "headless"
	NameX11      = "x11"
	NameTTY      = "tty"
)

type Backend interface {
	String() string
	Serve(ctx context.Context) error
}

type Options struct {
	// X11Display overrides $DISPLAY.
	X11Display string
	// SnapshotPath is written by the headless backend when it stops.
	SnapshotPath string
}

// New returns the backend called name.
func New(name string, device *Device, queue *mouse.Queue, frames *bus.Hub[porthole.Frame], opts Options) (Backend, error) {
	switch name {
	case NameHeadless, "":
		return NewHeadless(device, frames, opts.SnapshotPath), nil
	case NameX11:
		return NewX11(device, queue, frames, opts.X11Display), nil
	case NameTTY:
		return NewTTY(device, queue, frames), nil
	default:
		return nil, fmt.Errorf("unknown display %q", name)
	}
}

// push hands an event to the compositor like an interrupt handler would.
func push(queue *mouse.Queue, e mouse.Event) {
	if !queue.Push(e) {
		slog.Debug("Mouse queue full", "package", "display", "event", e)
	}
}
