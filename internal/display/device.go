package display

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/ItsNotGoodName/porthole/internal/fb"
	"github.com/ItsNotGoodName/porthole/internal/hal"
	"github.com/fogleman/gg"
)

const DefaultFramebufferAddress hal.PhysAddr = 0xfd000000

// Device is the display hardware. It owns a region of device memory that the
// compositor maps as its front buffer and reads it back as pixels. Reads are
// not synchronized with the compositor, so a frame may be observed mid-copy.
type Device struct {
	boot hal.BootGraphics
	mem  []byte
}

// NewDevice registers width × height pixels of device memory at phys.
func NewDevice(mem *hal.HostMemory, phys hal.PhysAddr, width, height int) (*Device, error) {
	boot := hal.BootGraphics{PhysAddr: phys, Width: width, Height: height}
	if err := boot.Validate(); err != nil {
		return nil, err
	}

	buf, err := mem.AddDevice(phys, boot.Size())
	if err != nil {
		return nil, fmt.Errorf("display device: %w", err)
	}

	return &Device{boot: boot, mem: buf}, nil
}

// Boot describes the device as the boot loader would.
func (d *Device) Boot() hal.BootGraphics {
	return d.boot
}

// Scanout returns the raw device memory, 32 bits per pixel in native byte
// order, rows without padding.
func (d *Device) Scanout() []byte {
	return d.mem
}

func (d *Device) Pixel(x, y int) fb.Color {
	i := (y*d.boot.Width + x) * 4
	return fb.Color(binary.NativeEndian.Uint32(d.mem[i:]))
}

// Image copies the device memory into an image.
func (d *Device) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, d.boot.Width, d.boot.Height))
	for i := 0; i < d.boot.Width*d.boot.Height; i++ {
		c := fb.Color(binary.NativeEndian.Uint32(d.mem[i*4:]))
		img.Pix[i*4+0] = c.R()
		img.Pix[i*4+1] = c.G()
		img.Pix[i*4+2] = c.B()
		img.Pix[i*4+3] = 0xff
	}
	return img
}

func (d *Device) EncodePNG(w io.Writer) error {
	return gg.NewContextForRGBA(d.Image()).EncodePNG(w)
}

func (d *Device) SavePNG(path string) error {
	return gg.NewContextForRGBA(d.Image()).SavePNG(path)
}
