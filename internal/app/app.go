// Package app runs panels, windows that porthole draws for itself.
package app

import (
	"fmt"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/config"
	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/mosaic"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
	"github.com/ItsNotGoodName/porthole/internal/wm"
)

type App struct {
	panels []*Panel
	byUUID map[string]*Panel
}

// New builds a panel for every config entry. Panels without a size share a
// mosaic over the whole screen.
func New(manager *wm.Manager, frames *bus.Hub[porthole.Frame], panels []config.Panel) (*App, error) {
	rects := Place(panels, geom.NewRect(0, 0, manager.Width(), manager.Height()))

	a := &App{
		byUUID: make(map[string]*Panel, len(panels)),
	}
	for i, cfg := range panels {
		if _, ok := a.byUUID[cfg.UUID]; ok {
			return nil, fmt.Errorf("panel %q: duplicate uuid %s", cfg.Name, cfg.UUID)
		}

		panel, err := NewPanel(manager, frames, cfg, rects[i])
		if err != nil {
			return nil, err
		}

		a.panels = append(a.panels, panel)
		a.byUUID[cfg.UUID] = panel
	}

	return a, nil
}

func (a *App) Panels() []*Panel {
	return a.panels
}

func (a *App) Panel(uuid string) (*Panel, bool) {
	p, ok := a.byUUID[uuid]
	return p, ok
}

// Place returns the starting rect of each panel. Tiled panels are laid out
// in area in config order.
func Place(panels []config.Panel, area geom.Rect) []geom.Rect {
	rects := make([]geom.Rect, len(panels))

	var tiled []int
	for i, p := range panels {
		if p.Tiled() {
			tiled = append(tiled, i)
			continue
		}
		rects[i] = geom.NewRect(p.X, p.Y, p.Width, p.Height)
	}
	if len(tiled) == 0 {
		return rects
	}

	m := mosaic.NewMosaic(mosaic.ForCount(len(tiled)))
	slots := m.Rects(area)
	for i, idx := range tiled {
		rects[idx] = slots[i]
	}

	return rects
}
