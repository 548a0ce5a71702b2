package hal

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrInvalidAddress = errors.New("invalid physical address")
	ErrNotMapped      = errors.New("no device memory at physical address")
	ErrAlreadyMapped  = errors.New("device memory already mapped")
	ErrOutOfMemory    = errors.New("out of memory")
	ErrBadLength      = errors.New("bad mapping length")
)

// PhysAddr is a physical memory address. Zero means "not available".
type PhysAddr uint64

func (a PhysAddr) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// PageFlags are the page table entry flags requested for a mapping.
type PageFlags uint32

const (
	FlagPresent PageFlags = 1 << iota
	FlagWritable
	FlagGlobal
	FlagNoCache
)

// DeviceFlags are the flags used for memory the display hardware reads.
const DeviceFlags = FlagPresent | FlagWritable | FlagGlobal | FlagNoCache

// AnonymousFlags are the flags used for general-purpose pixel memory.
const AnonymousFlags = FlagPresent | FlagWritable | FlagGlobal

func (f PageFlags) Has(flag PageFlags) bool {
	return f&flag == flag
}

func (f PageFlags) String() string {
	names := []string{}
	for _, v := range []struct {
		flag PageFlags
		name string
	}{
		{FlagPresent, "PRESENT"},
		{FlagWritable, "WRITABLE"},
		{FlagGlobal, "GLOBAL"},
		{FlagNoCache, "NO_CACHE"},
	} {
		if f.Has(v.flag) {
			names = append(names, v.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// Mapper is the memory mapping subsystem.
type Mapper interface {
	// MapDevice maps length bytes of device memory starting at phys.
	MapDevice(phys PhysAddr, length int, flags PageFlags) ([]byte, error)
	// Allocate returns length bytes of anonymous memory.
	Allocate(length int, flags PageFlags) ([]byte, error)
	// Free returns memory obtained from Allocate.
	Free(buf []byte)
}

type deviceRegion struct {
	buf    []byte
	mapped bool
	flags  PageFlags
}

// HostMemory implements Mapper on the host. Device regions are registered by
// the display hardware with AddDevice; anonymous allocations are counted
// against an optional budget.
type HostMemory struct {
	mu      sync.Mutex
	limit   int
	used    int
	devices map[PhysAddr]*deviceRegion
}

// NewHostMemory returns a mapper whose anonymous allocations may not exceed
// limit bytes in total. A limit of 0 means unlimited.
func NewHostMemory(limit int) *HostMemory {
	return &HostMemory{
		limit:   limit,
		devices: make(map[PhysAddr]*deviceRegion),
	}
}

// AddDevice registers length bytes of device memory at phys and returns the
// memory so the device can scan it out.
func (m *HostMemory) AddDevice(phys PhysAddr, length int) ([]byte, error) {
	if phys == 0 {
		return nil, ErrInvalidAddress
	}
	if length <= 0 {
		return nil, ErrBadLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[phys]; ok {
		return nil, fmt.Errorf("device at %s: %w", phys, ErrAlreadyMapped)
	}

	region := &deviceRegion{buf: make([]byte, length)}
	m.devices[phys] = region

	return region.buf, nil
}

func (m *HostMemory) MapDevice(phys PhysAddr, length int, flags PageFlags) ([]byte, error) {
	if phys == 0 {
		return nil, ErrInvalidAddress
	}
	if length <= 0 {
		return nil, ErrBadLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	region, ok := m.devices[phys]
	if !ok {
		return nil, fmt.Errorf("map %s: %w", phys, ErrNotMapped)
	}
	if region.mapped {
		return nil, fmt.Errorf("map %s: %w", phys, ErrAlreadyMapped)
	}
	if length > len(region.buf) {
		return nil, fmt.Errorf("map %s: %d bytes exceeds device size %d: %w", phys, length, len(region.buf), ErrBadLength)
	}

	region.mapped = true
	region.flags = flags

	return region.buf[:length:length], nil
}

// DeviceFlags returns the flags the device region at phys was mapped with.
func (m *HostMemory) DeviceFlags(phys PhysAddr) (PageFlags, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	region, ok := m.devices[phys]
	if !ok || !region.mapped {
		return 0, false
	}
	return region.flags, true
}

func (m *HostMemory) Allocate(length int, flags PageFlags) ([]byte, error) {
	if length <= 0 {
		return nil, ErrBadLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limit > 0 && m.used+length > m.limit {
		return nil, fmt.Errorf("allocate %d bytes (%d of %d used): %w", length, m.used, m.limit, ErrOutOfMemory)
	}
	m.used += length

	return make([]byte, length), nil
}

func (m *HostMemory) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}

	m.mu.Lock()
	m.used = max(m.used-len(buf), 0)
	m.mu.Unlock()
}

// Used returns the number of anonymous bytes currently allocated.
func (m *HostMemory) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}
