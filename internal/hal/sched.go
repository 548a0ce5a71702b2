package hal

import (
	"runtime"
	"time"
)

// Scheduler lets a task give up the processor.
type Scheduler interface {
	Yield()
}

// GoScheduler yields to the Go runtime. A non-zero Nap also sleeps so an idle
// compositor does not spin a core on the host.
type GoScheduler struct {
	Nap time.Duration
}

func (s GoScheduler) Yield() {
	runtime.Gosched()
	if s.Nap > 0 {
		time.Sleep(s.Nap)
	}
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func()

func (f SchedulerFunc) Yield() {
	f()
}
