package porthole

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ItsNotGoodName/porthole/internal/bus"
	"github.com/ItsNotGoodName/porthole/internal/hal"
	"github.com/ItsNotGoodName/porthole/internal/mouse"
	"github.com/ItsNotGoodName/porthole/internal/wm"
)

const DefaultFrameInterval = 16

// Frame is published after each frame reaches the display.
type Frame struct {
	Seq      uint64        `json:"seq"`
	Windows  int           `json:"windows"`
	Pruned   int           `json:"pruned"`
	Events   int           `json:"events"`
	Duration time.Duration `json:"duration"`
}

type Loop struct {
	manager  *wm.Manager
	queue    *mouse.Queue
	timer    hal.Timer
	sched    hal.Scheduler
	hub      *bus.Hub[Frame]
	interval uint64

	start  uint64
	seq    uint64
	events int

	lastMu sync.Mutex
	last   Frame
}

// NewLoop drives manager from queue, producing a frame every interval
// milliseconds of timer. A zero interval uses DefaultFrameInterval.
func NewLoop(manager *wm.Manager, queue *mouse.Queue, timer hal.Timer, sched hal.Scheduler, hub *bus.Hub[Frame], interval uint64) *Loop {
	if interval == 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		manager:  manager,
		queue:    queue,
		timer:    timer,
		sched:    sched,
		hub:      hub,
		interval: interval,
		start:    timer.Counter(),
	}
}

func (l *Loop) String() string {
	return "porthole.Loop"
}

func (l *Loop) Serve(ctx context.Context) error {
	slog.Info("Starting compositor", "width", l.manager.Width(), "height", l.manager.Height(), "interval_ms", l.interval)

	l.start = l.timer.Counter()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Step(ctx)
	}
}

// Step handles one batch of mouse events, or yields when there are none, and
// then produces a frame if one is due.
func (l *Loop) Step(ctx context.Context) (Frame, bool) {
	elapsed := hal.ElapsedMillis(l.timer, l.start, l.timer.Counter())

	if !l.intake() {
		l.sched.Yield()
	}

	if elapsed < l.interval {
		return Frame{}, false
	}

	frame := l.Frame(ctx)
	l.start = l.timer.Counter()
	return frame, true
}

func (l *Loop) intake() bool {
	batch, n, ok := mouse.Coalesce(l.queue)
	if n == 0 {
		return false
	}
	l.events += n

	if ok && (batch.DX != 0 || batch.DY != 0) {
		l.manager.UpdateMousePosition(batch.DX, batch.DY)
		l.manager.DragWindows(batch.DX, batch.DY, batch.Buttons)
	}

	return true
}

// Frame composites and shows one frame immediately.
func (l *Loop) Frame(ctx context.Context) Frame {
	begin := l.timer.Counter()
	stats := l.manager.Update()
	l.manager.Render()

	l.seq++
	frame := Frame{
		Seq:      l.seq,
		Windows:  stats.Windows,
		Pruned:   stats.Pruned,
		Events:   l.events,
		Duration: hal.Elapsed(l.timer, begin, l.timer.Counter()),
	}
	l.events = 0

	l.lastMu.Lock()
	l.last = frame
	l.lastMu.Unlock()

	if err := l.hub.Broadcast(ctx, frame); err != nil {
		slog.Debug("Frame broadcast interrupted", "frame", frame.Seq, "error", err)
	}

	return frame
}

// Last returns the most recent frame. The second result is false before the
// first frame.
func (l *Loop) Last() (Frame, bool) {
	l.lastMu.Lock()
	defer l.lastMu.Unlock()
	return l.last, l.last.Seq != 0
}
