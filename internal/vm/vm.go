package vm

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	InstructionSize = 2

	flagRegister = 0x0F
)

type VM struct {
	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    uint16            // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	gfx      [ScreenWidth * ScreenHeight]uint8 // Graphics buffer
	keypad   Keypad                            // Keypad
	drawFlag bool                              // Indicates a clear or draw has occurred this tick

	waiting      bool  // FX0A is waiting for a key
	waitRegister uint8 // Register receiving the awaited key

	rand *rand.Rand
}

type Option func(*VM)

// WithRandSource replaces the random source used by CXNN.
func WithRandSource(src rand.Source) Option {
	return func(vm *VM) {
		vm.rand = rand.New(src)
	}
}

// New returns a machine with zeroed state, the font loaded at 0x000 and
// the program counter at ProgramStart.
func New(opts ...Option) *VM {
	vm := &VM{
		pc:   ProgramStart,
		rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", 0), "n", len(chip8Font))
	copy(vm.memory[:], chip8Font[:])

	for _, opt := range opts {
		opt(vm)
	}

	return vm
}

// Load copies a program image into memory at ProgramStart. Bytes that would
// land past the end of memory are dropped. It returns the number of bytes
// copied.
func (vm *VM) Load(program []byte) int {
	n := copy(vm.memory[ProgramStart:], program)
	if n < len(program) {
		slog.Warn("program truncated", "size", len(program), "loaded", n)
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", n)
	return n
}

// Tick runs one emulated cycle with the given keypad state: either a single
// instruction preceded by timer decay, or, while waiting for a key, a single
// keypad scan. The returned frame is only valid until the next call.
func (vm *VM) Tick(keys Keypad) (Frame, error) {
	vm.keypad = keys
	vm.drawFlag = false

	if vm.waiting {
		vm.scanKeypad()
		return vm.frame(), nil
	}

	err := vm.step()
	return vm.frame(), err
}

func (vm *VM) scanKeypad() {
	for i, pressed := range vm.keypad {
		if pressed {
			vm.registers[vm.waitRegister] = uint8(i)
			vm.waiting = false
			return
		}
	}
}

func (vm *VM) step() error {
	opcode, err := vm.fetchOpcode()
	if err != nil {
		return err
	}

	instr, ok := decode(opcode)
	if !ok {
		return &IllegalInstructionError{PC: vm.pc, Opcode: uint16(opcode)}
	}

	delayTimer, soundTimer := vm.delayTimer, vm.soundTimer

	// Update timers
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}
	if vm.soundTimer > 0 {
		vm.soundTimer--
	}

	if err := vm.executeOpcode(instr, opcode); err != nil {
		// A failed instruction leaves the machine as it found it.
		vm.delayTimer, vm.soundTimer = delayTimer, soundTimer
		return err
	}

	return nil
}

func (vm *VM) fetchOpcode() (opcode, error) {
	if int(vm.pc)+1 >= MemorySize {
		return 0, &MemoryError{PC: vm.pc, Addr: vm.pc}
	}

	hi := vm.memory[vm.pc]
	lo := vm.memory[vm.pc+1]

	return opcode(uint16(hi)<<8 | uint16(lo)), nil // Op code is two bytes
}

func (vm *VM) frame() Frame {
	return Frame{gfx: &vm.gfx, Changed: vm.drawFlag}
}

// checkRange reports an error unless [addr, addr+n) lies inside memory.
func (vm *VM) checkRange(addr uint16, n int) error {
	if int(addr)+n > MemorySize {
		return &MemoryError{PC: vm.pc, Addr: uint16(min(int(addr)+n-1, 0xFFFF))}
	}
	return nil
}

// PC returns the address of the next instruction.
func (vm *VM) PC() uint16 {
	return vm.pc
}

// Index returns the index register.
func (vm *VM) Index() uint16 {
	return vm.index
}

// Register returns the value of register VX. x must be in 0..15, any other
// value panics.
func (vm *VM) Register(x int) uint8 {
	return vm.registers[x]
}

// DelayTimer returns the current delay timer value.
func (vm *VM) DelayTimer() uint8 {
	return vm.delayTimer
}

// SoundActive reports whether the sound timer is non-zero.
func (vm *VM) SoundActive() bool {
	return vm.soundTimer > 0
}

// Waiting reports whether the machine is suspended on FX0A.
func (vm *VM) Waiting() bool {
	return vm.waiting
}
