package hal

import "fmt"

// BootGraphics describes the linear framebuffer set up before the compositor
// starts.
type BootGraphics struct {
	PhysAddr PhysAddr
	Width    int
	Height   int
}

func (b BootGraphics) Validate() error {
	if b.PhysAddr == 0 {
		return fmt.Errorf("boot graphics: %w", ErrInvalidAddress)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("boot graphics: invalid mode %dx%d", b.Width, b.Height)
	}
	return nil
}

// Size returns the framebuffer size in bytes.
func (b BootGraphics) Size() int {
	return b.Width * b.Height * 4
}
