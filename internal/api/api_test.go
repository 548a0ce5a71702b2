package api

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ItsNotGoodName/porthole/internal/app"
	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/config"
	"github.com/ItsNotGoodName/porthole/internal/display"
	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/hal"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
	"github.com/ItsNotGoodName/porthole/internal/wm"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
)

type testRig struct {
	manager *wm.Manager
	queue   *mouse.Queue
	loop    *porthole.Loop
	app     *app.App
	handler *Handler
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	mem := hal.NewHostMemory(0)
	device, err := display.NewDevice(mem, display.DefaultFramebufferAddress, 160, 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manager, err := wm.New(mem, wm.DefaultOptions(device.Boot()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frames := bus.NewHub[porthole.Frame]()
	queue := mouse.NewQueue(2)
	loop := porthole.NewLoop(manager, queue, &hal.ManualTimer{}, hal.SchedulerFunc(func() {}), frames, 16)
	panels, err := app.New(manager, frames, []config.Panel{{UUID: "p1", Name: "one", Width: 40, Height: 30}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return &testRig{
		manager: manager,
		queue:   queue,
		loop:    loop,
		app:     panels,
		handler: NewHandler(manager, queue, loop, device, panels),
	}
}

func newTestAPI(t *testing.T, r *testRig) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t, huma.DefaultConfig("porthole", "test"))
	r.handler.Register(api)
	return api
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", res.Body.String(), err)
	}
	return v
}

func TestWindows(t *testing.T) {
	r := newTestRig(t)
	api := newTestAPI(t, r)

	w, err := r.manager.NewWindow(geom.NewRect(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := api.Get("/api/windows")
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", res.Code, res.Body.String())
	}
	list := decode[struct{ Windows []Window }](t, res)
	if len(list.Windows) != 1 || list.Windows[0].ID != w.ID.String() {
		t.Fatalf("windows = %+v", list.Windows)
	}
	if got := list.Windows[0].Rect; got != (Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
		t.Fatalf("rect = %+v", got)
	}
	if got := list.Windows[0].State; got != "stable" {
		t.Fatalf("state = %q", got)
	}

	res = api.Put("/api/windows/"+w.ID.String()+"/position", map[string]any{"x": 50, "y": 60})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", res.Code, res.Body.String())
	}
	if got := w.Rect(); got.X != 50 || got.Y != 60 {
		t.Fatalf("rect = %v", got)
	}

	tests := []struct {
		id   string
		code int
	}{
		{"not-a-uuid", http.StatusUnprocessableEntity},
		{"00000000-0000-0000-0000-000000000000", http.StatusNotFound},
	}
	for _, tt := range tests {
		res := api.Put("/api/windows/"+tt.id+"/position", map[string]any{"x": 0, "y": 0})
		if res.Code != tt.code {
			t.Errorf("PUT %s: status = %d, want %d", tt.id, res.Code, tt.code)
		}
	}
}

func TestCursor(t *testing.T) {
	r := newTestRig(t)
	api := newTestAPI(t, r)

	res := api.Get("/api/cursor")
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if got := decode[Rect](t, res); got.Width != wm.CursorWidth || got.Height != wm.CursorHeight {
		t.Fatalf("cursor = %+v", got)
	}

	res = api.Put("/api/cursor", map[string]any{"x": 10, "y": 20})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", res.Code, res.Body.String())
	}
	if got := r.manager.Cursor(); got.X != 10 || got.Y != 20 {
		t.Fatalf("cursor = %v", got)
	}

	res = api.Put("/api/cursor", map[string]any{"x": 1000, "y": 20})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", res.Code)
	}
}

func TestMouse(t *testing.T) {
	r := newTestRig(t)
	api := newTestAPI(t, r)

	res := api.Post("/api/mouse", map[string]any{"dx": 3, "dy": -4, "buttons": []string{"left", "fifth"}, "scroll": "up"})
	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", res.Code, res.Body.String())
	}

	e, ok := r.queue.Pop()
	if !ok {
		t.Fatalf("queue is empty")
	}
	want := mouse.Event{
		Kind:    mouse.KindMove,
		DX:      3,
		DY:      -4,
		Buttons: mouse.Buttons{Left: true, Fifth: true},
		Scroll:  mouse.Scroll{Up: true},
	}
	if e != want {
		t.Fatalf("event = %+v, want %+v", e, want)
	}

	if res := api.Post("/api/mouse", map[string]any{"dx": 1, "dy": 0, "buttons": []string{"sixth"}}); res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown button: status = %d", res.Code)
	}

	api.Post("/api/mouse", map[string]any{"dx": 1, "dy": 0})
	api.Post("/api/mouse", map[string]any{"dx": 1, "dy": 0})
	if res := api.Post("/api/mouse", map[string]any{"dx": 1, "dy": 0}); res.Code != http.StatusServiceUnavailable {
		t.Fatalf("full queue: status = %d", res.Code)
	}
}

func TestFrame(t *testing.T) {
	r := newTestRig(t)
	api := newTestAPI(t, r)

	if res := api.Get("/api/frame"); res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}

	r.loop.Frame(context.Background())

	res := api.Get("/api/frame")
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if got := decode[porthole.Frame](t, res); got.Seq != 1 {
		t.Fatalf("frame = %+v", got)
	}
}

func TestPanels(t *testing.T) {
	r := newTestRig(t)
	api := newTestAPI(t, r)

	res := api.Get("/api/panels")
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	list := decode[struct{ Panels []Panel }](t, res)
	if len(list.Panels) != 1 || list.Panels[0].UUID != "p1" || list.Panels[0].Running {
		t.Fatalf("panels = %+v", list.Panels)
	}

	if res := api.Patch("/api/panels/nope", map[string]any{"text": "x"}); res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}

	panel, _ := r.app.Panel("p1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go panel.Serve(ctx)

	res = api.Patch("/api/panels/p1", map[string]any{"text": "updated", "background": "#abcdef"})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", res.Code, res.Body.String())
	}
	got := decode[Panel](t, res)
	if got.Text != "updated" || got.Background != "#abcdef" || !got.Running || got.Window == "" {
		t.Fatalf("panel = %+v", got)
	}

	if res := api.Patch("/api/panels/p1", map[string]any{"foreground": "blue"}); res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad color: status = %d", res.Code)
	}
}

func TestScreen(t *testing.T) {
	r := newTestRig(t)
	api := newTestAPI(t, r)

	r.loop.Frame(context.Background())

	res := api.Get("/screen.png")
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	img, err := png.Decode(res.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 120 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestRouter(t *testing.T) {
	r := newTestRig(t)
	srv := httptest.NewServer(NewRouter(r.handler))
	defer srv.Close()

	tests := []struct {
		path     string
		contains string
	}{
		{"/", "<title>porthole</title>"},
		{"/api/cursor", `"width":11`},
		{"/openapi.json", "list-windows"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer res.Body.Close()

			var body strings.Builder
			if _, err := io.Copy(&body, res.Body); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", res.StatusCode)
			}
			if !strings.Contains(body.String(), tt.contains) {
				t.Fatalf("body does not contain %q: %s", tt.contains, body.String())
			}
		})
	}
}
