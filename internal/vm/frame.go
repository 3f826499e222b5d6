package vm

// Frame is a read-only view of the framebuffer after a tick. It shares
// storage with the machine and must not be used after the next Tick.
type Frame struct {
	gfx *[ScreenWidth * ScreenHeight]uint8

	// Changed is set when the tick cleared the screen or drew a sprite.
	Changed bool
}

// At reports whether the pixel at column x, row y is lit. Coordinates wrap.
func (f Frame) At(x, y int) bool {
	if f.gfx == nil {
		return false
	}
	return f.gfx[getScreenAddr(uint16(x), uint16(y))] != 0
}

// CopyTo writes one byte per pixel, row-major, into dst and returns the
// number of pixels written.
func (f Frame) CopyTo(dst []uint8) int {
	if f.gfx == nil {
		return 0
	}
	return copy(dst, f.gfx[:])
}

func getScreenAddr(x, y uint16) uint16 {
	x %= ScreenWidth
	y %= ScreenHeight

	screenAddr := ScreenWidth*(y) + x
	return screenAddr
}
