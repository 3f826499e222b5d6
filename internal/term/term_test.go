package term

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/retroenv/retrogolib/assert"

	"github.com/kapitanov/chip8tick/internal/runner"
	"github.com/kapitanov/chip8tick/internal/vm"
)

func newSimulated(t *testing.T, hold int) (*Terminal, tcell.SimulationScreen) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	term, err := newTerminal(screen, Config{Foreground: 0xffffff, HoldTicks: hold})
	assert.NoError(t, err)
	t.Cleanup(term.Shutdown)

	screen.SetSize(vm.ScreenWidth, vm.ScreenHeight/2)
	return term, screen
}

func TestKeyFromRune(t *testing.T) {
	tests := []struct {
		r   rune
		key vm.Key
		ok  bool
	}{
		{'x', vm.Key0, true},
		{'1', vm.Key1, true},
		{'Q', vm.Key4, true},
		{'s', vm.Key8, true},
		{'4', vm.KeyC, true},
		{'v', vm.KeyF, true},
		{'p', 0, false},
	}

	for _, tt := range tests {
		key, ok := keyFromRune(tt.r)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.key, key)
	}
}

func TestReadInput_HoldsKeys(t *testing.T) {
	term, screen := newSimulated(t, 2)

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)

	var keys vm.Keypad
	assert.NoError(t, term.ReadInput(&keys))
	assert.True(t, keys.Pressed(vm.Key5))

	assert.NoError(t, term.ReadInput(&keys))
	assert.True(t, keys.Pressed(vm.Key5))

	assert.NoError(t, term.ReadInput(&keys))
	assert.False(t, keys.Pressed(vm.Key5))
}

func TestReadInput_Control(t *testing.T) {
	term, screen := newSimulated(t, 1)
	var keys vm.Keypad

	screen.InjectKey(tcell.KeyBackspace2, 0, tcell.ModNone)
	assert.True(t, errors.Is(term.ReadInput(&keys), runner.ErrReboot))

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	assert.True(t, errors.Is(term.ReadInput(&keys), runner.ErrQuit))
}

func TestDraw(t *testing.T) {
	term, screen := newSimulated(t, 1)

	// font v0; sprite v0, v0, 2 draws rows 0xF0, 0x90 at (0, 0).
	machine := vm.New()
	machine.Load([]byte{0xF0, 0x29, 0xD0, 0x02})
	_, err := machine.Tick(vm.Keypad{})
	assert.NoError(t, err)
	frame, err := machine.Tick(vm.Keypad{})
	assert.NoError(t, err)

	assert.NoError(t, term.Draw(frame))

	cells, width, _ := screen.GetContents()
	assert.Equal(t, vm.ScreenWidth, width)
	assert.Equal(t, []rune{'█'}, cells[0].Runes)
	assert.Equal(t, []rune{'▀'}, cells[1].Runes)
	assert.Equal(t, []rune{'█'}, cells[3].Runes)
	assert.Equal(t, []rune{' '}, cells[4].Runes)
	assert.Equal(t, []rune{' '}, cells[width].Runes)
}
