// Package api exposes the compositor over HTTP for debugging.
package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/ItsNotGoodName/porthole/internal/app"
	"github.com/ItsNotGoodName/porthole/internal/build"
	"github.com/ItsNotGoodName/porthole/internal/display"
	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
	"github.com/ItsNotGoodName/porthole/internal/wm"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

type Handler struct {
	manager *wm.Manager
	queue   *mouse.Queue
	loop    *porthole.Loop
	device  *display.Device
	app     *app.App
}

func NewHandler(manager *wm.Manager, queue *mouse.Queue, loop *porthole.Loop, device *display.Device, panels *app.App) *Handler {
	return &Handler{
		manager: manager,
		queue:   queue,
		loop:    loop,
		device:  device,
		app:     panels,
	}
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func newRect(r geom.Rect) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Window struct {
	ID    string `json:"id"`
	Rect  Rect   `json:"rect"`
	State string `json:"state" enum:"stable,pending_resize"`
}

type Panel struct {
	UUID           string `json:"uuid"`
	Name           string `json:"name"`
	Window         string `json:"window,omitempty"`
	Running        bool   `json:"running"`
	Rect           Rect   `json:"rect"`
	Text           string `json:"text"`
	Background     string `json:"background"`
	Foreground     string `json:"foreground"`
	TextBackground string `json:"text_background"`
	Frames         uint64 `json:"frames"`
}

func newPanel(st app.PanelState) Panel {
	p := Panel{
		UUID:           st.UUID,
		Name:           st.Name,
		Running:        st.Running,
		Rect:           newRect(st.Rect),
		Text:           st.Text,
		Background:     st.Colors.Background.String(),
		Foreground:     st.Colors.Foreground.String(),
		TextBackground: st.Colors.TextBackground.String(),
		Frames:         st.Frames,
	}
	if st.Running {
		p.Window = st.Window.String()
	}
	return p
}

type (
	BuildOutput struct {
		Body build.Build
	}

	ListWindowsOutput struct {
		Body struct {
			Windows []Window `json:"windows"`
		}
	}

	SetWindowPositionInput struct {
		ID   string `path:"id" doc:"window id"`
		Body Point
	}
	SetWindowPositionOutput struct {
		Body Window
	}

	CursorOutput struct {
		Body Rect
	}

	SetCursorInput struct {
		Body Point
	}

	MouseInput struct {
		Body struct {
			DX      int      `json:"dx" minimum:"-1024" maximum:"1024" doc:"horizontal displacement, positive is right"`
			DY      int      `json:"dy" minimum:"-1024" maximum:"1024" doc:"vertical displacement, positive is up"`
			Buttons []string `json:"buttons,omitempty" doc:"held buttons: left, right, middle, fourth, fifth"`
			Scroll  string   `json:"scroll,omitempty" enum:"up,down"`
		}
	}
	MouseOutput struct {
		Body struct {
			Queued  int    `json:"queued"`
			Dropped uint64 `json:"dropped"`
		}
	}

	FrameOutput struct {
		Body porthole.Frame
	}

	ListPanelsOutput struct {
		Body struct {
			Panels []Panel `json:"panels"`
		}
	}

	UpdatePanelInput struct {
		UUID string `path:"uuid"`
		Body struct {
			Text           *string `json:"text,omitempty"`
			Background     string  `json:"background,omitempty" doc:"#rrggbb"`
			Foreground     string  `json:"foreground,omitempty" doc:"#rrggbb"`
			TextBackground string  `json:"text_background,omitempty" doc:"#rrggbb"`
		}
	}
	UpdatePanelOutput struct {
		Body Panel
	}

	ScreenOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
)

// Register adds the operations to api.
func (h *Handler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-build",
		Method:      http.MethodGet,
		Path:        "/api/build",
		Summary:     "Build information",
		Tags:        []string{"porthole"},
	}, h.Build)
	huma.Register(api, huma.Operation{
		OperationID: "list-windows",
		Method:      http.MethodGet,
		Path:        "/api/windows",
		Summary:     "List windows in paint order",
		Tags:        []string{"windows"},
	}, h.ListWindows)
	huma.Register(api, huma.Operation{
		OperationID: "set-window-position",
		Method:      http.MethodPut,
		Path:        "/api/windows/{id}/position",
		Summary:     "Move a window",
		Tags:        []string{"windows"},
	}, h.SetWindowPosition)
	huma.Register(api, huma.Operation{
		OperationID: "get-cursor",
		Method:      http.MethodGet,
		Path:        "/api/cursor",
		Summary:     "Cursor rect",
		Tags:        []string{"mouse"},
	}, h.Cursor)
	huma.Register(api, huma.Operation{
		OperationID: "set-cursor",
		Method:      http.MethodPut,
		Path:        "/api/cursor",
		Summary:     "Warp the cursor",
		Tags:        []string{"mouse"},
	}, h.SetCursor)
	huma.Register(api, huma.Operation{
		OperationID:   "post-mouse",
		Method:        http.MethodPost,
		Path:          "/api/mouse",
		Summary:       "Queue a mouse event",
		Tags:          []string{"mouse"},
		DefaultStatus: http.StatusAccepted,
	}, h.Mouse)
	huma.Register(api, huma.Operation{
		OperationID: "get-frame",
		Method:      http.MethodGet,
		Path:        "/api/frame",
		Summary:     "Last frame",
		Tags:        []string{"porthole"},
	}, h.Frame)
	huma.Register(api, huma.Operation{
		OperationID: "list-panels",
		Method:      http.MethodGet,
		Path:        "/api/panels",
		Summary:     "List panels",
		Tags:        []string{"panels"},
	}, h.ListPanels)
	huma.Register(api, huma.Operation{
		OperationID: "update-panel",
		Method:      http.MethodPatch,
		Path:        "/api/panels/{uuid}",
		Summary:     "Change panel text or colors",
		Tags:        []string{"panels"},
	}, h.UpdatePanel)
	huma.Register(api, huma.Operation{
		OperationID: "get-screen",
		Method:      http.MethodGet,
		Path:        "/screen.png",
		Summary:     "Display scanout as PNG",
		Tags:        []string{"porthole"},
	}, h.Screen)
}

func (h *Handler) Build(ctx context.Context, input *struct{}) (*BuildOutput, error) {
	return &BuildOutput{Body: build.Current}, nil
}

func newWindow(w *wm.Window) Window {
	return Window{
		ID:    w.ID.String(),
		Rect:  newRect(w.Rect()),
		State: w.State().String(),
	}
}

func (h *Handler) ListWindows(ctx context.Context, input *struct{}) (*ListWindowsOutput, error) {
	res := &ListWindowsOutput{}
	res.Body.Windows = []Window{}
	for _, w := range h.manager.Windows() {
		res.Body.Windows = append(res.Body.Windows, newWindow(w))
	}
	return res, nil
}

func (h *Handler) SetWindowPosition(ctx context.Context, input *SetWindowPositionInput) (*SetWindowPositionOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid window id", err)
	}

	w, ok := h.manager.Window(id)
	if !ok {
		return nil, huma.Error404NotFound("window not found")
	}
	w.SetPosition(input.Body.X, input.Body.Y)

	return &SetWindowPositionOutput{Body: newWindow(w)}, nil
}

func (h *Handler) Cursor(ctx context.Context, input *struct{}) (*CursorOutput, error) {
	return &CursorOutput{Body: newRect(h.manager.Cursor())}, nil
}

func (h *Handler) SetCursor(ctx context.Context, input *SetCursorInput) (*CursorOutput, error) {
	if !h.manager.SetCursor(input.Body.X, input.Body.Y) {
		return nil, huma.Error422UnprocessableEntity("cursor would leave the screen")
	}
	return &CursorOutput{Body: newRect(h.manager.Cursor())}, nil
}

func (h *Handler) Mouse(ctx context.Context, input *MouseInput) (*MouseOutput, error) {
	e := mouse.Event{
		Kind: mouse.KindMove,
		DX:   input.Body.DX,
		DY:   input.Body.DY,
	}
	for _, b := range input.Body.Buttons {
		switch b {
		case "left":
			e.Buttons.Left = true
		case "right":
			e.Buttons.Right = true
		case "middle":
			e.Buttons.Middle = true
		case "fourth":
			e.Buttons.Fourth = true
		case "fifth":
			e.Buttons.Fifth = true
		default:
			return nil, huma.Error422UnprocessableEntity("unknown button " + b)
		}
	}
	switch input.Body.Scroll {
	case "up":
		e.Scroll.Up = true
	case "down":
		e.Scroll.Down = true
	}

	if !h.queue.Push(e) {
		return nil, huma.Error503ServiceUnavailable("mouse queue is full")
	}

	res := &MouseOutput{}
	res.Body.Queued = h.queue.Len()
	res.Body.Dropped = h.queue.Dropped()
	return res, nil
}

func (h *Handler) Frame(ctx context.Context, input *struct{}) (*FrameOutput, error) {
	frame, ok := h.loop.Last()
	if !ok {
		return nil, huma.Error404NotFound("no frame yet")
	}
	return &FrameOutput{Body: frame}, nil
}

func (h *Handler) ListPanels(ctx context.Context, input *struct{}) (*ListPanelsOutput, error) {
	res := &ListPanelsOutput{}
	res.Body.Panels = []Panel{}
	for _, p := range h.app.Panels() {
		res.Body.Panels = append(res.Body.Panels, newPanel(p.State()))
	}
	return res, nil
}

func (h *Handler) UpdatePanel(ctx context.Context, input *UpdatePanelInput) (*UpdatePanelOutput, error) {
	p, ok := h.app.Panel(input.UUID)
	if !ok {
		return nil, huma.Error404NotFound("panel not found")
	}

	var cmds []any
	if input.Body.Text != nil {
		cmds = append(cmds, app.PanelCommandText{Text: *input.Body.Text})
	}

	colors := p.State().Colors
	changed := false
	for _, c := range []struct {
		value string
		dst   *fb.Color
	}{
		{input.Body.Background, &colors.Background},
		{input.Body.Foreground, &colors.Foreground},
		{input.Body.TextBackground, &colors.TextBackground},
	} {
		if c.value == "" {
			continue
		}
		color, err := fb.ParseColor(c.value)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid color", err)
		}
		*c.dst = color
		changed = true
	}
	if changed {
		cmds = append(cmds, app.PanelCommandColors{Colors: colors})
	}

	if err := p.Send(ctx, cmds...); err != nil {
		return nil, huma.Error503ServiceUnavailable("panel is not running", err)
	}

	return &UpdatePanelOutput{Body: newPanel(p.State())}, nil
}

func (h *Handler) Screen(ctx context.Context, input *struct{}) (*ScreenOutput, error) {
	var buf bytes.Buffer
	if err := h.device.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return &ScreenOutput{ContentType: "image/png", Body: buf.Bytes()}, nil
}
