package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/config"
	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
	"github.com/ItsNotGoodName/porthole/internal/wm"
	"github.com/google/uuid"
)

type Colors struct {
	Background     fb.Color
	Foreground     fb.Color
	TextBackground fb.Color
}

type (
	PanelCommandText struct {
		Text string
	}
	PanelCommandColors struct {
		Colors Colors
	}
	PanelCommandMove struct {
		X int
		Y int
	}
	PanelCommandResize struct {
		Width  int
		Height int
	}
)

// PanelState is a copy of what the panel currently shows.
type PanelState struct {
	UUID    string
	Name    string
	Window  uuid.UUID
	Running bool
	Rect    geom.Rect
	Text    string
	Colors  Colors
	Frames  uint64
}

// Panel owns one window. It redraws the window after every frame, since the
// compositor clears windows once they have been shown.
type Panel struct {
	uuid    string
	name    string
	column  int
	line    int
	manager *wm.Manager
	frames  *bus.Hub[porthole.Frame]

	requestC chan panelRequest

	// Only touched by Serve.
	rect   geom.Rect
	text   *Signal[string]
	colors *Signal[Colors]

	mu    sync.Mutex
	state PanelState
}

func NewPanel(manager *wm.Manager, frames *bus.Hub[porthole.Frame], cfg config.Panel, rect geom.Rect) (*Panel, error) {
	background, foreground, textBackground, err := cfg.Colors()
	if err != nil {
		return nil, fmt.Errorf("panel %q: %w", cfg.Name, err)
	}

	p := &Panel{
		uuid:     cfg.UUID,
		name:     cfg.Name,
		column:   cfg.Column,
		line:     cfg.Line,
		manager:  manager,
		frames:   frames,
		requestC: make(chan panelRequest),
		rect:     rect,
		text:     NewSignal(cfg.Text),
		colors: NewSignal(Colors{
			Background:     background,
			Foreground:     foreground,
			TextBackground: textBackground,
		}),
	}
	p.state = PanelState{
		UUID:   cfg.UUID,
		Name:   cfg.Name,
		Rect:   rect,
		Text:   cfg.Text,
		Colors: p.colors.V,
	}

	p.text.AddEffect(func() {
		p.mu.Lock()
		p.state.Text = p.text.V
		p.mu.Unlock()
	})
	p.colors.AddEffect(func() {
		p.mu.Lock()
		p.state.Colors = p.colors.V
		p.mu.Unlock()
	})

	return p, nil
}

func (p *Panel) String() string {
	return fmt.Sprintf("app.Panel(name=%s)", p.name)
}

func (p *Panel) UUID() string {
	return p.uuid
}

func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

type panelRequest struct {
	cmds  []any
	doneC chan struct{}
}

// Send hands commands to the running panel and waits until they are applied
// or ctx ends.
func (p *Panel) Send(ctx context.Context, cmds ...any) error {
	req := panelRequest{cmds: cmds, doneC: make(chan struct{})}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.requestC <- req:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-req.doneC:
		return nil
	}
}

func (p *Panel) Serve(ctx context.Context) error {
	log := slog.With("service", p.String())

	win, err := p.manager.NewWindow(p.rect)
	if err != nil {
		return err
	}
	defer func() {
		// Keep the last position for the next run.
		p.rect = win.Rect()
		win.Close()

		p.mu.Lock()
		p.state.Running = false
		p.state.Rect = p.rect
		p.mu.Unlock()
	}()

	frameC, unsubscribe := p.frames.Subscribe(ctx)
	defer unsubscribe()

	p.draw(win)

	p.mu.Lock()
	p.state.Window = win.ID
	p.state.Running = true
	p.mu.Unlock()

	log.Debug("Panel started", "window", win.ID, "rect", p.rect)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-frameC:
			p.draw(win)

			p.mu.Lock()
			p.state.Frames = frame.Seq
			p.state.Rect = win.Rect()
			p.mu.Unlock()
		case req := <-p.requestC:
			err := p.apply(log, win, req.cmds)
			close(req.doneC)
			if err != nil {
				return err
			}
		}
	}
}

func (p *Panel) apply(log *slog.Logger, win *wm.Window, cmds []any) error {
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case PanelCommandText:
			p.text.SetValue(cmd.Text)
		case PanelCommandColors:
			p.colors.SetValue(cmd.Colors)
		case PanelCommandMove:
			win.SetPosition(cmd.X, cmd.Y)
		case PanelCommandResize:
			if err := win.Resize(cmd.Width, cmd.Height); err != nil {
				return err
			}
		default:
			log.Warn("Unknown panel command", "command", fmt.Sprintf("%T", cmd))
		}
	}

	p.draw(win)

	p.mu.Lock()
	p.state.Rect = win.Rect()
	p.mu.Unlock()

	return nil
}

// draw paints the background, the panel name on the first line and the text
// at the configured cell.
func (p *Panel) draw(win *wm.Window) {
	colors := p.colors.V
	win.Fill(colors.Background)
	if p.name != "" {
		win.RenderText(p.name, colors.Background, colors.Foreground, 0, 0)
	}
	win.RenderText(p.text.V, colors.Foreground, colors.TextBackground, p.column, p.line)
}
