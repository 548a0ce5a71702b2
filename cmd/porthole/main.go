package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ItsNotGoodName/porthole/internal/api"
	"github.com/ItsNotGoodName/porthole/internal/app"
	"github.com/ItsNotGoodName/porthole/internal/build"
	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/config"
	"github.com/ItsNotGoodName/porthole/internal/core"
	"github.com/ItsNotGoodName/porthole/internal/display"
	"github.com/ItsNotGoodName/porthole/internal/hal"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/ItsNotGoodName/porthole/internal/porthole"
	"github.com/ItsNotGoodName/porthole/internal/wm"
	"github.com/ItsNotGoodName/porthole/pkg/sutureext"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/phsym/console-slog"
	"github.com/thejerf/suture/v4"
)

type Options struct {
	Debug    bool   `doc:"enable debug"`
	Config   string `doc:"config file, .yaml or .json" default:".porthole.yaml"`
	Display  string `doc:"display backend: headless, x11 or tty, overrides the config"`
	Snapshot string `doc:"PNG written by the headless display when it stops"`
	Host     string `doc:"host to listen on, overrides the config"`
	Port     int    `doc:"port to listen on, overrides the config"`
}

func main() {
	godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		if options.Debug {
			InitLogger(slog.LevelDebug)
		} else {
			InitLogger(slog.LevelInfo)
		}

		OnServe(hooks, func(ctx context.Context) error {
			bus.SetContext(ctx)

			configFilePath, err := filepath.Abs(options.Config)
			if err != nil {
				return err
			}

			store, err := config.NewStore(config.NewDriver(configFilePath))
			if err != nil {
				return err
			}

			cfg, err := config.Normalize(store)
			if err != nil {
				return err
			}
			if options.Display != "" {
				cfg.Display = options.Display
			}
			if options.Host != "" {
				cfg.HTTP.Host = options.Host
			}
			if options.Port != 0 {
				cfg.HTTP.Port = options.Port
			}

			return Run(ctx, cfg, options.Snapshot)
		})
	})

	cli.Root().Version = build.Current.Version

	cli.Run()
}

// Run brings up the display, the compositor and its clients and supervises
// them until ctx ends or the display asks to quit.
func Run(ctx context.Context, cfg config.Config, snapshot string) error {
	mem := hal.NewHostMemory(cfg.MemoryLimit)

	device, err := display.NewDevice(mem, hal.PhysAddr(cfg.FramebufferAddress), cfg.Screen.Width, cfg.Screen.Height)
	if err != nil {
		return err
	}

	opts := wm.DefaultOptions(device.Boot())
	opts.Cursor.X, opts.Cursor.Y = cfg.Cursor.X, cfg.Cursor.Y
	opts.DragMargin = cfg.DragMargin
	manager, err := wm.New(mem, opts)
	if err != nil {
		return err
	}

	bus.Subscribe("main", func(ctx context.Context, event wm.WindowPruned) error {
		slog.Debug("Window pruned", "window", event.ID)
		return nil
	})

	frames := bus.NewHub[porthole.Frame]()
	queue := mouse.NewQueue(cfg.MouseQueueCapacity)
	sched := hal.GoScheduler{Nap: time.Duration(cfg.YieldNapUS) * time.Microsecond}
	loop := porthole.NewLoop(manager, queue, hal.NewMonotonicTimer(), sched, frames, uint64(cfg.FrameIntervalMS))

	backend, err := display.New(cfg.Display, device, queue, frames, display.Options{SnapshotPath: snapshot})
	if err != nil {
		return err
	}

	panels, err := app.New(manager, frames, cfg.Panels)
	if err != nil {
		return err
	}

	super := sutureext.NewSimple("root")
	sutureext.Add(super, loop)
	sutureext.Add(super, backend)
	for _, panel := range panels.Panels() {
		sutureext.Add(super, panel)
	}
	if cfg.HTTP.Enable {
		handler := api.NewHandler(manager, queue, loop, device, panels)
		sutureext.Add(super, api.NewServer(core.Address(cfg.HTTP.Host, cfg.HTTP.Port), api.NewRouter(handler)))
	}

	slog.Info("Starting "+build.Current.String(), "display", cfg.Display, "width", device.Boot().Width, "height", device.Boot().Height, "panels", len(cfg.Panels))

	err = super.Serve(ctx)
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		return nil
	}
	return err
}

func InitLogger(level slog.Level) {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	})))
}

func OnServe(hooks humacli.Hooks, serveFn func(ctx context.Context) error) {
	stopC := make(chan struct{})
	hooks.OnStart(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errC := make(chan error, 1)

		go func() { errC <- serveFn(ctx) }()

		select {
		case <-stopC:
			cancel()
		case err := <-errC:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
			return
		}

		<-errC
		<-stopC
	})
	hooks.OnStop(func() {
		stopC <- struct{}{}
		stopC <- struct{}{}
	})
}
