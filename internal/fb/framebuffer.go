// Package fb implements 32-bit pixel buffers over mapped memory.
//
// Pixels are stored row-major with the origin at the top left and no padding
// between rows. Drawing is clipped silently: coordinates outside
// [0, width) × [0, height) are ignored, never reported.
package fb

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/ItsNotGoodName/porthole/internal/geom"
	"github.com/ItsNotGoodName/porthole/internal/hal"
)

const bytesPerPixel = 4

type FrameBuffer struct {
	width  int
	height int
	pixels []Color

	mem    []byte
	mapper hal.Mapper
	device bool
}

// Allocate creates a width × height buffer. When phys is non-nil the buffer
// is mapped onto device memory at that address with caching disabled,
// otherwise it is backed by anonymous memory.
func Allocate(mapper hal.Mapper, width, height int, phys *hal.PhysAddr) (*FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("framebuffer %dx%d: %w", width, height, hal.ErrBadLength)
	}

	size := width * height * bytesPerPixel

	var (
		mem []byte
		err error
	)
	if phys != nil {
		mem, err = mapper.MapDevice(*phys, size, hal.DeviceFlags)
	} else {
		mem, err = mapper.Allocate(size, hal.AnonymousFlags)
	}
	if err != nil {
		return nil, fmt.Errorf("framebuffer %dx%d: %w", width, height, err)
	}

	return &FrameBuffer{
		width:  width,
		height: height,
		pixels: unsafe.Slice((*Color)(unsafe.Pointer(unsafe.SliceData(mem))), width*height),
		mem:    mem,
		mapper: mapper,
		device: phys != nil,
	}, nil
}

// New creates an anonymous buffer.
func New(mapper hal.Mapper, width, height int) (*FrameBuffer, error) {
	return Allocate(mapper, width, height, nil)
}

// NewDevice maps the boot framebuffer described by boot.
func NewDevice(mapper hal.Mapper, boot hal.BootGraphics) (*FrameBuffer, error) {
	if err := boot.Validate(); err != nil {
		return nil, err
	}
	phys := boot.PhysAddr
	return Allocate(mapper, boot.Width, boot.Height, &phys)
}

func (f *FrameBuffer) Width() int  { return f.width }
func (f *FrameBuffer) Height() int { return f.height }
func (f *FrameBuffer) Device() bool {
	return f.device
}

func (f *FrameBuffer) Bounds() geom.Rect {
	return geom.NewRect(0, 0, f.width, f.height)
}

// Pixels exposes the backing memory.
func (f *FrameBuffer) Pixels() []Color {
	return f.pixels
}

func (f *FrameBuffer) inBounds(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// DrawPixel writes one cell. Out of range coordinates are ignored.
func (f *FrameBuffer) DrawPixel(x, y int, c Color) {
	if f.inBounds(x, y) {
		f.pixels[y*f.width+x] = c
	}
}

// Pixel reads one cell. The caller must keep (x, y) in range.
func (f *FrameBuffer) Pixel(x, y int) Color {
	return f.pixels[y*f.width+x]
}

// FillRect paints r, clipping each cell independently.
func (f *FrameBuffer) FillRect(r geom.Rect, c Color) {
	for y := r.Y; y < r.EndY(); y++ {
		for x := r.X; x < r.EndX(); x++ {
			f.DrawPixel(x, y, c)
		}
	}
}

// Clear sets every cell to black.
func (f *FrameBuffer) Clear() {
	clear(f.pixels)
}

// ClearRect sets every cell of r that lies inside the buffer to black.
func (f *FrameBuffer) ClearRect(r geom.Rect) {
	r, ok := r.Intersect(f.Bounds())
	if !ok {
		return
	}
	for y := r.Y; y < r.EndY(); y++ {
		row := f.pixels[y*f.width+r.X : y*f.width+r.EndX()]
		clear(row)
	}
}

// Blit copies src into f with its top-left corner at (x, y). Cells that fall
// outside f are dropped.
func (f *FrameBuffer) Blit(src *FrameBuffer, x, y int) {
	dst, ok := geom.NewRect(x, y, src.width, src.height).Intersect(f.Bounds())
	if !ok {
		return
	}
	for dy := dst.Y; dy < dst.EndY(); dy++ {
		sy := dy - y
		sx := dst.X - x
		copy(
			f.pixels[dy*f.width+dst.X:dy*f.width+dst.EndX()],
			src.pixels[sy*src.width+sx:sy*src.width+sx+dst.Width],
		)
	}
}

// CopyFrom replaces the contents of f with src. Both must have the same size.
func (f *FrameBuffer) CopyFrom(src *FrameBuffer) {
	if f.width != src.width || f.height != src.height {
		panic(fmt.Sprintf("fb: copy %dx%d into %dx%d", src.width, src.height, f.width, f.height))
	}
	copy(f.pixels, src.pixels)
}

// RGBA returns a copy of the buffer as an image.
func (f *FrameBuffer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for i, c := range f.pixels {
		img.Pix[i*4+0] = c.R()
		img.Pix[i*4+1] = c.G()
		img.Pix[i*4+2] = c.B()
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// Release gives anonymous memory back to the mapper. Device memory stays
// mapped. A released buffer is empty and ignores drawing.
func (f *FrameBuffer) Release() {
	if f.device || f.mem == nil {
		return
	}
	f.mapper.Free(f.mem)
	f.mem = nil
	f.pixels = nil
	f.width, f.height = 0, 0
}
