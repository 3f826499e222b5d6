package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

type fakeHAL struct {
	inputs    []vm.Keypad
	quitAfter int

	reads  int
	draws  int
	beeps  int
	pixels []bool
}

func (f *fakeHAL) ReadInput(keys *vm.Keypad) error {
	if f.reads == f.quitAfter {
		return ErrQuit
	}
	if f.reads < len(f.inputs) {
		*keys = f.inputs[f.reads]
	}
	f.reads++
	return nil
}

func (f *fakeHAL) Draw(frame vm.Frame) error {
	f.draws++
	f.pixels = f.pixels[:0]
	for x := range 8 {
		f.pixels = append(f.pixels, frame.At(x, 0))
	}
	return nil
}

func (f *fakeHAL) Beep() error {
	f.beeps++
	return nil
}

func newMachine(words ...uint16) *vm.VM {
	program := make([]byte, 0, len(words)*2)
	for _, w := range words {
		program = append(program, byte(w>>8), byte(w))
	}

	machine := vm.New()
	machine.Load(program)
	return machine
}

func TestRun_DrawAndBeep(t *testing.T) {
	// mov v0, 2; ssound v0; font v1; sprite v1, v1, 5; jmp 0x208
	machine := newMachine(0x6002, 0xF018, 0xF129, 0xD115, 0x1208)
	hal := &fakeHAL{quitAfter: 10}

	err := Run(context.Background(), machine, hal, Config{})

	assert.True(t, errors.Is(err, ErrQuit))
	assert.Equal(t, 10, hal.reads)
	assert.Equal(t, 1, hal.draws)
	assert.Equal(t, 1, hal.beeps)
	assert.Equal(t, []bool{true, true, true, true, false, false, false, false}, hal.pixels)
}

func TestRun_MachineError(t *testing.T) {
	machine := newMachine(0x6001, 0xFFFF)
	hal := &fakeHAL{quitAfter: -1}

	err := Run(context.Background(), machine, hal, Config{})

	assert.True(t, errors.Is(err, vm.ErrIllegalInstruction))
	assert.True(t, strings.Contains(err.Error(), "tick at 0x0202"))
	assert.Equal(t, 2, hal.reads)
}

func TestRun_WaitForKey(t *testing.T) {
	// key v3; jmp 0x202
	machine := newMachine(0xF30A, 0x1202)

	var pressed vm.Keypad
	pressed.Press(vm.Key7)

	hal := &fakeHAL{
		inputs:    []vm.Keypad{{}, {}, {}, pressed},
		quitAfter: 6,
	}

	err := Run(context.Background(), machine, hal, Config{})

	assert.True(t, errors.Is(err, ErrQuit))
	assert.False(t, machine.Waiting())
	assert.Equal(t, uint8(vm.Key7), machine.Register(3))
	assert.Equal(t, uint16(0x202), machine.PC())
}

func TestRun_Cancel(t *testing.T) {
	machine := newMachine(0x1200)
	hal := &fakeHAL{quitAfter: -1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, machine, hal, Config{Cycle: time.Hour})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, hal.reads)
}
