package hal

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"github.com/kapitanov/chip8tick/internal/runner"
	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512
)

type Config struct {
	Foreground uint32 // RGB
	Background uint32 // RGB
}

var DefaultConfig = Config{
	Foreground: 0xbea700,
	Background: 0x000000,
}

type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	gfx             []uint8
	backBuffer      []uint32
	backBufferPitch int
	fg, bg          uint32
}

func New(cfg Config) (*HAL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	hal := &HAL{
		gfx:             make([]uint8, vm.ScreenWidth*vm.ScreenHeight),
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
		fg:              cfg.Foreground,
		bg:              cfg.Background,
	}

	if err := hal.init(); err != nil {
		hal.Shutdown()
		return nil, err
	}

	return hal, nil
}

func (hal *HAL) init() error {
	var err error

	hal.window, err = sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window")
	hal.window.Show()

	hal.renderer, err = sdl.CreateRenderer(hal.window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	if err := hal.renderer.SetLogicalSize(WindowWidth, WindowHeight); err != nil {
		return fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	hal.texture, err = hal.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	// Nothing has been drawn yet.
	return hal.present()
}

// Shutdown releases whatever New managed to create, so it is safe on a
// partially initialized HAL.
func (hal *HAL) Shutdown() {
	if hal.texture != nil {
		if err := hal.texture.Destroy(); err != nil {
			slog.Error("failed to destroy sdl texture", "err", err)
		}
		hal.texture = nil
	}

	if hal.renderer != nil {
		if err := hal.renderer.Destroy(); err != nil {
			slog.Error("failed to destroy sdl renderer", "err", err)
		}
		hal.renderer = nil
	}

	if hal.window != nil {
		if err := hal.window.Destroy(); err != nil {
			slog.Error("failed to destroy sdl window", "err", err)
		}
		hal.window = nil
	}

	sdl.Quit()
}

// ReadInput drains pending SDL events into keys. Keys keep their state
// between calls until a key-up arrives.
func (hal *HAL) ReadInput(keys *vm.Keypad) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return runner.ErrQuit

		case sdl.KEYDOWN:
			ke := e.(*sdl.KeyboardEvent)
			if ke.Keysym.Scancode == sdl.SCANCODE_BACKSPACE {
				slog.Debug("hal: reboot requested")
				return runner.ErrReboot
			}
			if key, ok := keyMap(ke.Keysym.Scancode); ok {
				keys.Press(key)
			}

		case sdl.KEYUP:
			ke := e.(*sdl.KeyboardEvent)
			if key, ok := keyMap(ke.Keysym.Scancode); ok {
				keys.Release(key)
			}
		}
	}

	return nil
}

func keyMap(code sdl.Scancode) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch code {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *HAL) Draw(frame vm.Frame) error {
	frame.CopyTo(hal.gfx)
	return hal.present()
}

func (hal *HAL) present() error {
	for i, px := range hal.gfx {
		color := hal.bg
		if px != 0 {
			color = hal.fg
		}

		hal.backBuffer[i] = 0xff000000 | color
	}

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

// Beep rings the terminal bell; there is no audio output.
func (hal *HAL) Beep() error {
	_, err := fmt.Fprint(os.Stderr, "\a")
	return err
}
