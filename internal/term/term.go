// Package term is a text-mode frontend drawing the framebuffer with
// half-block glyphs, two pixel rows per terminal row.
package term

import (
	"fmt"
	"log/slog"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/kapitanov/chip8tick/internal/runner"
	"github.com/kapitanov/chip8tick/internal/vm"
)

// keyLayout maps each logical key, by index, to the physical key a
// QWERTY keyboard has in the same keypad position.
const keyLayout = "x123qweasdzc4rfv"

type Config struct {
	Foreground uint32 // RGB
	Background uint32 // RGB

	// HoldTicks is how many ReadInput calls a key stays pressed after its
	// last key event. Terminals do not report key releases.
	HoldTicks int
}

type Terminal struct {
	screen tcell.Screen
	style  tcell.Style
	held   [vm.KeyCount]int
	hold   int
}

func New(cfg Config) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}

	return newTerminal(screen, cfg)
}

func newTerminal(screen tcell.Screen, cfg Config) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to init terminal screen: %w", err)
	}
	slog.Debug("term: init screen")

	style := tcell.StyleDefault.
		Foreground(rgb(cfg.Foreground)).
		Background(rgb(cfg.Background))

	screen.SetStyle(style)
	screen.HideCursor()
	screen.Clear()
	screen.Show()

	return &Terminal{
		screen: screen,
		style:  style,
		hold:   max(cfg.HoldTicks, 1),
	}, nil
}

func rgb(c uint32) tcell.Color {
	return tcell.NewRGBColor(int32(c>>16&0xff), int32(c>>8&0xff), int32(c&0xff))
}

func (t *Terminal) Shutdown() {
	t.screen.Fini()
}

func (t *Terminal) ReadInput(keys *vm.Keypad) error {
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventResize:
			t.screen.Sync()

		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				slog.Debug("term: exit requested")
				return runner.ErrQuit

			case tcell.KeyBackspace, tcell.KeyBackspace2:
				slog.Debug("term: reboot requested")
				return runner.ErrReboot

			case tcell.KeyRune:
				if key, ok := keyFromRune(ev.Rune()); ok {
					t.held[key] = t.hold
				}
			}
		}
	}

	for i := range t.held {
		if t.held[i] > 0 {
			t.held[i]--
			keys.Press(vm.Key(i))
		} else {
			keys.Release(vm.Key(i))
		}
	}

	return nil
}

func keyFromRune(r rune) (vm.Key, bool) {
	r = unicode.ToLower(r)
	for i, c := range keyLayout {
		if c == r {
			return vm.Key(i), true
		}
	}
	return 0, false
}

func (t *Terminal) Draw(frame vm.Frame) error {
	for row := 0; row < vm.ScreenHeight; row += 2 {
		for x := 0; x < vm.ScreenWidth; x++ {
			t.screen.SetContent(x, row/2, cell(frame.At(x, row), frame.At(x, row+1)), nil, t.style)
		}
	}

	t.screen.Show()
	return nil
}

func cell(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}

func (t *Terminal) Beep() error {
	return t.screen.Beep()
}
