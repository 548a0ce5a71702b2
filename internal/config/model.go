package config

import (
	"errors"
	"fmt"

	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/google/uuid"
)

const (
	DisplayHeadless = "headless"
	DisplayX11      = "x11"
	DisplayTTY      = "tty"
)

var ErrInvalidConfig = errors.New("invalid config")

var defaultConfig = Config{
	Display:            DisplayHeadless,
	Screen:             Screen{Width: 800, Height: 600},
	FramebufferAddress: 0xfd000000,
	FrameIntervalMS:    16,
	YieldNapUS:         500,
	MouseQueueCapacity: 100,
	DragMargin:         20,
	Cursor:             Point{X: 200, Y: 200},
	HTTP:               HTTP{Enable: true, Host: "127.0.0.1", Port: 8080},
	Panels: []Panel{
		{
			Name:           "hello",
			X:              400,
			Y:              400,
			Width:          300,
			Height:         120,
			Background:     "#4a4a4a",
			Foreground:     "#123456",
			TextBackground: "#fff111",
			Text:           "Hello from porthole",
			Column:         2,
			Line:           2,
		},
	},
}

func Default() Config {
	cfg := defaultConfig
	cfg.Panels = append([]Panel(nil), defaultConfig.Panels...)
	return cfg
}

type Config struct {
	Display            string  `json:"display" yaml:"display"` // [headless, x11, tty]
	Screen             Screen  `json:"screen" yaml:"screen"`
	FramebufferAddress uint64  `json:"framebuffer_address" yaml:"framebuffer_address"`
	FrameIntervalMS    int     `json:"frame_interval_ms" yaml:"frame_interval_ms"`
	YieldNapUS         int     `json:"yield_nap_us" yaml:"yield_nap_us"`
	MouseQueueCapacity int     `json:"mouse_queue_capacity" yaml:"mouse_queue_capacity"`
	DragMargin         int     `json:"drag_margin" yaml:"drag_margin"`
	Cursor             Point   `json:"cursor" yaml:"cursor"`
	MemoryLimit        int     `json:"memory_limit" yaml:"memory_limit"` // bytes, 0 is unlimited
	HTTP               HTTP    `json:"http" yaml:"http"`
	Panels             []Panel `json:"panels" yaml:"panels"`
}

type Screen struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

type HTTP struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
}

// Panel is a window drawn by porthole itself. A panel without a size is
// tiled.
type Panel struct {
	UUID           string `json:"uuid" yaml:"uuid"`
	Name           string `json:"name" yaml:"name"`
	X              int    `json:"x" yaml:"x"`
	Y              int    `json:"y" yaml:"y"`
	Width          int    `json:"width" yaml:"width"`
	Height         int    `json:"height" yaml:"height"`
	Background     string `json:"background" yaml:"background"`
	Foreground     string `json:"foreground" yaml:"foreground"`
	TextBackground string `json:"text_background" yaml:"text_background"`
	Text           string `json:"text" yaml:"text"`
	Column         int    `json:"column" yaml:"column"`
	Line           int    `json:"line" yaml:"line"`
}

func (p Panel) Tiled() bool {
	return p.Width <= 0 || p.Height <= 0
}

// Colors parses the panel colors. Empty colors default to black background
// and white text.
func (p Panel) Colors() (background, foreground, textBackground fb.Color, err error) {
	parse := func(s string, fallback fb.Color) (fb.Color, error) {
		if s == "" {
			return fallback, nil
		}
		return fb.ParseColor(s)
	}

	if background, err = parse(p.Background, fb.Black); err != nil {
		return
	}
	if foreground, err = parse(p.Foreground, fb.White); err != nil {
		return
	}
	textBackground, err = parse(p.TextBackground, background)
	return
}

// Normalize fills zero values with defaults, gives panels a UUID and checks
// the rest.
func (c Config) Normalize() (Config, error) {
	if c.Display == "" {
		c.Display = defaultConfig.Display
	}
	switch c.Display {
	case DisplayHeadless, DisplayX11, DisplayTTY:
	default:
		return c, fmt.Errorf("display %q: %w", c.Display, ErrInvalidConfig)
	}

	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		c.Screen = defaultConfig.Screen
	}
	if c.FramebufferAddress == 0 {
		c.FramebufferAddress = defaultConfig.FramebufferAddress
	}
	if c.FrameIntervalMS <= 0 {
		c.FrameIntervalMS = defaultConfig.FrameIntervalMS
	}
	if c.YieldNapUS < 0 {
		c.YieldNapUS = 0
	}
	if c.MouseQueueCapacity <= 0 {
		c.MouseQueueCapacity = defaultConfig.MouseQueueCapacity
	}
	if c.DragMargin <= 0 {
		c.DragMargin = defaultConfig.DragMargin
	}
	if c.MemoryLimit < 0 {
		return c, fmt.Errorf("memory_limit %d: %w", c.MemoryLimit, ErrInvalidConfig)
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = defaultConfig.HTTP.Port
	}

	for i := range c.Panels {
		if c.Panels[i].UUID == "" {
			c.Panels[i].UUID = uuid.NewString()
		}
		if _, _, _, err := c.Panels[i].Colors(); err != nil {
			return c, fmt.Errorf("panel %q: %w: %w", c.Panels[i].Name, ErrInvalidConfig, err)
		}
	}

	return c, nil
}
