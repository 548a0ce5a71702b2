package hal

import (
	"sync/atomic"
	"time"
)

const (
	femtosecondsPerNanosecond  = 1_000_000
	femtosecondsPerMillisecond = 1_000_000_000_000
)

// Timer is a monotonic hardware counter.
type Timer interface {
	// Counter returns the current tick count.
	Counter() uint64
	// PeriodFemtoseconds returns the length of one tick.
	PeriodFemtoseconds() uint64
}

// ElapsedMillis converts a counter difference into milliseconds.
func ElapsedMillis(t Timer, start, end uint64) uint64 {
	if end < start {
		return 0
	}
	return (end - start) * t.PeriodFemtoseconds() / femtosecondsPerMillisecond
}

// MonotonicTimer counts nanoseconds on the host monotonic clock.
type MonotonicTimer struct {
	start time.Time
}

func NewMonotonicTimer() MonotonicTimer {
	return MonotonicTimer{start: time.Now()}
}

func (t MonotonicTimer) Counter() uint64 {
	return uint64(time.Since(t.start).Nanoseconds())
}

func (t MonotonicTimer) PeriodFemtoseconds() uint64 {
	return femtosecondsPerNanosecond
}

// ManualTimer is a counter advanced by hand. Its period is one millisecond.
type ManualTimer struct {
	ticks atomic.Uint64
}

func (t *ManualTimer) Advance(ticks uint64) {
	t.ticks.Add(ticks)
}

func (t *ManualTimer) Counter() uint64 {
	return t.ticks.Load()
}

func (t *ManualTimer) PeriodFemtoseconds() uint64 {
	return femtosecondsPerMillisecond
}

// Elapsed converts a counter difference into a duration.
func Elapsed(t Timer, start, end uint64) time.Duration {
	if end < start {
		return 0
	}
	return time.Duration((end - start) * t.PeriodFemtoseconds() / femtosecondsPerNanosecond)
}
