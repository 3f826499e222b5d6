package hal

import (
	"testing"

	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/retroenv/retrogolib/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func TestShutdown_PartialInit(t *testing.T) {
	hal := &HAL{}
	hal.Shutdown()

	assert.Nil(t, hal.window)
	assert.Nil(t, hal.renderer)
	assert.Nil(t, hal.texture)

	// A second call after a full teardown is harmless too.
	hal.Shutdown()
}

func TestKeyMap(t *testing.T) {
	tests := []struct {
		code     sdl.Scancode
		expected vm.Key
	}{
		{sdl.SCANCODE_1, vm.Key1},
		{sdl.SCANCODE_4, vm.KeyC},
		{sdl.SCANCODE_Q, vm.Key4},
		{sdl.SCANCODE_F, vm.KeyE},
		{sdl.SCANCODE_X, vm.Key0},
		{sdl.SCANCODE_V, vm.KeyF},
	}

	for _, tt := range tests {
		key, ok := keyMap(tt.code)
		assert.True(t, ok)
		assert.Equal(t, tt.expected, key)
	}

	_, ok := keyMap(sdl.SCANCODE_P)
	assert.False(t, ok)
}
