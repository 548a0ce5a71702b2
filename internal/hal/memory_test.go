package hal

import (
	"errors"
	"testing"
	"time"
)

func TestHostMemory_MapDevice(t *testing.T) {
	mem := NewHostMemory(0)

	device, err := mem.AddDevice(0xfd000000, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mapped, err := mem.MapDevice(0xfd000000, 64, DeviceFlags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mapped[10] = 0xab
	if device[10] != 0xab {
		t.Fatalf("mapping does not alias device memory")
	}

	flags, ok := mem.DeviceFlags(0xfd000000)
	if !ok || !flags.Has(FlagNoCache) {
		t.Fatalf("expected NO_CACHE mapping, got %v", flags)
	}

	if _, err := mem.MapDevice(0xfd000000, 64, DeviceFlags); !errors.Is(err, ErrAlreadyMapped) {
		t.Fatalf("expected ErrAlreadyMapped, got %v", err)
	}
}

func TestHostMemory_MapDeviceErrors(t *testing.T) {
	mem := NewHostMemory(0)
	if _, err := mem.AddDevice(0x1000, 16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		phys   PhysAddr
		length int
		want   error
	}{
		{"zero address", 0, 16, ErrInvalidAddress},
		{"unknown address", 0x2000, 16, ErrNotMapped},
		{"too long", 0x1000, 32, ErrBadLength},
		{"zero length", 0x1000, 0, ErrBadLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mem.MapDevice(tt.phys, tt.length, DeviceFlags); !errors.Is(err, tt.want) {
				t.Errorf("MapDevice(%s, %d) error = %v, want %v", tt.phys, tt.length, err, tt.want)
			}
		})
	}
}

func TestHostMemory_AllocateBudget(t *testing.T) {
	mem := NewHostMemory(100)

	a, err := mem.Allocate(60, AnonymousFlags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mem.Allocate(60, AnonymousFlags); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}

	mem.Free(a)
	if mem.Used() != 0 {
		t.Fatalf("expected 0 bytes used, got %d", mem.Used())
	}
	if _, err := mem.Allocate(60, AnonymousFlags); err != nil {
		t.Fatalf("unexpected error after free: %v", err)
	}
}

func TestPageFlags_String(t *testing.T) {
	if got := DeviceFlags.String(); got != "PRESENT|WRITABLE|GLOBAL|NO_CACHE" {
		t.Fatalf("got %q", got)
	}
	if got := PageFlags(0).String(); got != "NONE" {
		t.Fatalf("got %q", got)
	}
}

func TestElapsedMillis(t *testing.T) {
	timer := NewMonotonicTimer()
	if got := ElapsedMillis(timer, 0, 16_000_000); got != 16 {
		t.Fatalf("got %d ms, want 16", got)
	}

	var manual ManualTimer
	start := manual.Counter()
	manual.Advance(5)
	if got := ElapsedMillis(&manual, start, manual.Counter()); got != 5 {
		t.Fatalf("got %d ms, want 5", got)
	}
	if got := ElapsedMillis(&manual, 10, 5); got != 0 {
		t.Fatalf("got %d ms for a backwards counter, want 0", got)
	}
}

func TestBootGraphics_Validate(t *testing.T) {
	if err := (BootGraphics{Width: 800, Height: 600}).Validate(); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if err := (BootGraphics{PhysAddr: 0x1000, Width: 0, Height: 600}).Validate(); err == nil {
		t.Fatalf("expected error for zero width")
	}
	if err := (BootGraphics{PhysAddr: 0x1000, Width: 800, Height: 600}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestElapsed(t *testing.T) {
	var manual ManualTimer
	if got := Elapsed(&manual, 3, 19); got != 16*time.Millisecond {
		t.Fatalf("got %v, want 16ms", got)
	}
	if got := Elapsed(NewMonotonicTimer(), 0, 1500); got != 1500*time.Nanosecond {
		t.Fatalf("got %v, want 1.5µs", got)
	}
}
