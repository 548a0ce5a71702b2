package display

import (
	"context"
	"log/slog"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
)

// Headless has no output. When stopped it can save what the device shows.
type Headless struct {
	device   *Device
	frames   *bus.Hub[porthole.Frame]
	snapshot string
}

func NewHeadless(device *Device, frames *bus.Hub[porthole.Frame], snapshot string) Headless {
	return Headless{
		device:   device,
		frames:   frames,
		snapshot: snapshot,
	}
}

func (Headless) String() string {
	return "display.Headless"
}

func (h Headless) Serve(ctx context.Context) error {
	frameC, unsubscribe := h.frames.Subscribe(ctx)
	defer unsubscribe()

	var last porthole.Frame
	for {
		select {
		case <-ctx.Done():
			if h.snapshot != "" {
				if err := h.device.SavePNG(h.snapshot); err != nil {
					slog.Error("Failed to save snapshot", "path", h.snapshot, "error", err)
				} else {
					slog.Info("Saved snapshot", "path", h.snapshot, "frame", last.Seq)
				}
			}
			return ctx.Err()
		case last = <-frameC:
			slog.Debug("Frame", "frame", last.Seq, "windows", last.Windows, "duration", last.Duration)
		}
	}
}
