package vm

import (
	"context"
	"fmt"
	"log/slog"
)

// opcode is a 16-bit instruction word.
type opcode uint16

func (op opcode) group() uint16 { return uint16(op) & 0xF000 }
func (op opcode) x() uint8      { return uint8(op>>8) & 0x0F }
func (op opcode) y() uint8      { return uint8(op>>4) & 0x0F }
func (op opcode) n() uint8      { return uint8(op) & 0x0F }
func (op opcode) nn() uint8     { return uint8(op) }
func (op opcode) nnn() uint16   { return uint16(op) & 0x0FFF }

func (vm *VM) executeOpcode(instr instruction, op opcode) error {
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", vm.pc),
			"opcode", fmt.Sprintf("0x%04x", uint16(op)),
			"instr", instr.Name(op),
		)
	}

	next, err := instr.Execute(vm, op)
	if err != nil {
		return err
	}

	vm.pc = next
	return nil
}

// instruction is one entry of the decode table. Execute returns the address
// of the next instruction to fetch and must not modify the machine when it
// fails.
type instruction struct {
	Name    func(op opcode) string
	Execute func(vm *VM, op opcode) (uint16, error)
}

func decode(op opcode) (instruction, bool) {
	switch op.group() {
	case 0x0000:
		switch op.nn() {
		case 0xE0:
			// 00E0 - Clear screen
			return clsInstruction, true

		case 0xEE:
			// 00EE - Return from subroutine
			return rtsInstruction, true
		}

	case 0x1000:
		// 1NNN - Jumps to address NNN
		return jmpInstruction, true

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		return jsrInstruction, true

	case 0x3000:
		// 3XNN - Skips the next instruction if VX equals NN
		return skeq1Instruction, true

	case 0x4000:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return skne1Instruction, true

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		if op.n() == 0 {
			return skeq2Instruction, true
		}

	case 0x6000:
		// 6XNN - Sets VX to NN
		return mov1Instruction, true

	case 0x7000:
		// 7XNN - Adds NN to VX, VF untouched
		return add1Instruction, true

	case 0x8000:
		// 8XY_
		switch op.n() {
		case 0x0:
			// 8XY0 - Sets VX to the value of VY
			return mov2Instruction, true

		case 0x1:
			// 8XY1 - Sets VX to (VX OR VY)
			return orInstruction, true

		case 0x2:
			// 8XY2 - Sets VX to (VX AND VY)
			return andInstruction, true

		case 0x3:
			// 8XY3 - Sets VX to (VX XOR VY)
			return xorInstruction, true

		case 0x4:
			// 8XY4 - Adds VY to VX. VF is set to 1 when there's a carry, and to 0 when there isn't.
			return add2Instruction, true

		case 0x5:
			// 8XY5 - VY is subtracted from VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
			return subInstruction, true

		case 0x6:
			// 8XY6 - Shifts VX right by one. VF is set to the value of the least significant bit of VX before the shift.
			return shrInstruction, true

		case 0x7:
			// 8XY7 - Sets VX to VY minus VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
			return rsbInstruction, true

		case 0xE:
			// 8XYE - Shifts VX left by one. VF is set to the value of the most significant bit of VX before the shift.
			return shlInstruction, true
		}

	case 0x9000:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		if op.n() == 0 {
			return skne2Instruction, true
		}

	case 0xA000:
		// ANNN - Sets I to the address NNN
		return mviInstruction, true

	case 0xB000:
		// BNNN - Jumps to the address NNN plus V0
		return jmiInstruction, true

	case 0xC000:
		// CXNN - Sets VX to a random number, masked by NN
		return randInstruction, true

	case 0xD000:
		// DXYN - Draws a sprite at coordinate (VX, VY) that has a width of 8
		// pixels and a height of N pixels.
		// Each row of 8 pixels is read as bit-coded starting from memory
		// location I; I value doesn't change after the execution of this
		// instruction.
		// VF is set to 1 if any screen pixels are flipped from set to unset
		// when the sprite is drawn, and to 0 if that doesn't happen.
		return spriteInstruction, true

	case 0xE000:
		switch op.nn() {
		case 0x9E:
			// EX9E - Skips the next instruction if the key stored in VX is pressed
			return skprInstruction, true

		case 0xA1:
			// EXA1 - Skips the next instruction if the key stored in VX isn't pressed
			return skupInstruction, true
		}

	case 0xF000:
		switch op.nn() {
		case 0x07:
			// FX07 - Sets VX to the value of the delay timer
			return gdelayInstruction, true

		case 0x0A:
			// FX0A - A key press is awaited, and then stored in VX
			return keyInstruction, true

		case 0x15:
			// FX15 - Sets the delay timer to VX
			return sdelayInstruction, true

		case 0x18:
			// FX18 - Sets the sound timer to VX
			return ssoundInstruction, true

		case 0x1E:
			// FX1E - Adds VX to I, VF untouched
			return adiInstruction, true

		case 0x29:
			// FX29 - Sets I to the location of the sprite for the
			// character in VX. Characters 0-F (in hexadecimal) are
			// represented by a 4x5 font
			return fontInstruction, true

		case 0x33:
			// FX33 - Stores the Binary-coded decimal representation of VX
			// at the addresses I, I plus 1, and I plus 2
			return bcdInstruction, true

		case 0x55:
			// FX55 - Stores V0 to VX in memory starting at address I
			return strInstruction, true

		case 0x65:
			// FX65 - Reads memory starting at address I into V0...VX
			return ldrInstruction, true
		}
	}

	return unknownInstruction, false
}

// next and skip are the two sequential outcomes of a non-branching
// instruction.
func (vm *VM) next() uint16 { return vm.pc + InstructionSize }
func (vm *VM) skip() uint16 { return vm.pc + 2*InstructionSize }

func (vm *VM) skipIf(cond bool) uint16 {
	if cond {
		return vm.skip()
	}
	return vm.next()
}

func bit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func regImmName(mnemonic string) func(op opcode) string {
	return func(op opcode) string {
		return fmt.Sprintf("%s v%x, %d", mnemonic, op.x(), op.nn())
	}
}

func regRegName(mnemonic string) func(op opcode) string {
	return func(op opcode) string {
		return fmt.Sprintf("%s v%x, v%x", mnemonic, op.x(), op.y())
	}
}

func regName(mnemonic string) func(op opcode) string {
	return func(op opcode) string {
		return fmt.Sprintf("%s v%x", mnemonic, op.x())
	}
}

func addrName(mnemonic string) func(op opcode) string {
	return func(op opcode) string {
		return fmt.Sprintf("%s 0x%04x", mnemonic, op.nnn())
	}
}

var (
	// 00E0	cls	Clear the screen
	clsInstruction = instruction{
		Name: func(op opcode) string {
			return "cls"
		},
		Execute: func(vm *VM, op opcode) (uint16, error) {
			clear(vm.gfx[:])
			vm.drawFlag = true
			return vm.next(), nil
		},
	}

	// 00EE	rts	return from subroutine call
	rtsInstruction = instruction{
		Name: func(op opcode) string {
			return "rts"
		},
		Execute: func(vm *VM, op opcode) (uint16, error) {
			if vm.sp == 0 {
				return 0, fmt.Errorf("rts at 0x%04x: %w", vm.pc, ErrStackUnderflow)
			}

			vm.sp--
			return vm.stack[vm.sp], nil
		},
	}

	// 1xxx	jmp xxx	jump to address xxx
	jmpInstruction = instruction{
		Name: addrName("jmp"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			return op.nnn(), nil
		},
	}

	// 2xxx	jsr xxx	jump to subroutine at address xxx
	jsrInstruction = instruction{
		Name: addrName("jsr"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			if vm.sp >= StackSize {
				return 0, fmt.Errorf("jsr at 0x%04x: %w", vm.pc, ErrStackOverflow)
			}

			vm.stack[vm.sp] = vm.next()
			vm.sp++
			return op.nnn(), nil
		},
	}

	// 3rxx	skeq vr,xx	skip if register r = constant
	skeq1Instruction = instruction{
		Name: regImmName("skeq"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			return vm.skipIf(vm.registers[op.x()] == op.nn()), nil
		},
	}

	// 4rxx	skne vr,xx	skip if register r <> constant
	skne1Instruction = instruction{
		Name: regImmName("skne"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			return vm.skipIf(vm.registers[op.x()] != op.nn()), nil
		},
	}

	// 5ry0	skeq vr,vy	skip if register r = register y
	skeq2Instruction = instruction{
		Name: regRegName("skeq"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			return vm.skipIf(vm.registers[op.x()] == vm.registers[op.y()]), nil
		},
	}

	// 6rxx	mov vr,xx	move constant to register r
	mov1Instruction = instruction{
		Name: regImmName("mov"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] = op.nn()
			return vm.next(), nil
		},
	}

	// 7rxx	add vr,xx	add constant to register r	No carry generated
	add1Instruction = instruction{
		Name: regImmName("add"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] += op.nn()
			return vm.next(), nil
		},
	}

	// 8ry0	mov vr,vy	move register vy into vr
	mov2Instruction = instruction{
		Name: regRegName("mov"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] = vm.registers[op.y()]
			return vm.next(), nil
		},
	}

	// 8ry1	or rx,ry	or register vy into register vx
	orInstruction = instruction{
		Name: regRegName("or"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] |= vm.registers[op.y()]
			return vm.next(), nil
		},
	}

	// 8ry2	and rx,ry	and register vy into register vx
	andInstruction = instruction{
		Name: regRegName("and"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] &= vm.registers[op.y()]
			return vm.next(), nil
		},
	}

	// 8ry3	xor rx,ry	exclusive or register ry into register rx
	xorInstruction = instruction{
		Name: regRegName("xor"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] ^= vm.registers[op.y()]
			return vm.next(), nil
		},
	}

	// 8ry4	add vr,vy	add register vy to vr,carry in vf
	add2Instruction = instruction{
		Name: regRegName("add"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			x := vm.registers[op.x()]
			y := vm.registers[op.y()]
			sum := uint16(x) + uint16(y)

			vm.registers[op.x()] = uint8(sum)
			vm.registers[flagRegister] = bit(sum > 0xFF)
			return vm.next(), nil
		},
	}

	// 8ry5	sub vr,vy	subtract register vy from vr,borrow in vf	vf set to 0 if borrows
	subInstruction = instruction{
		Name: regRegName("sub"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			x := vm.registers[op.x()]
			y := vm.registers[op.y()]

			vm.registers[op.x()] = x - y
			// Equal operands do not borrow, so VF is 1.
			vm.registers[flagRegister] = bit(x >= y)
			return vm.next(), nil
		},
	}

	// 8r06	shr vr	shift register vr right, bit 0 goes into register vf
	shrInstruction = instruction{
		Name: regName("shr"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			x := vm.registers[op.x()]

			vm.registers[op.x()] = x >> 1
			vm.registers[flagRegister] = x & 0x1
			return vm.next(), nil
		},
	}

	// 8ry7	rsb vr,vy	subtract register vr from register vy, result in vr	vf set to 0 if borrows
	rsbInstruction = instruction{
		Name: regRegName("rsb"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			x := vm.registers[op.x()]
			y := vm.registers[op.y()]

			vm.registers[op.x()] = y - x
			// Equal operands do not borrow, so VF is 1.
			vm.registers[flagRegister] = bit(y >= x)
			return vm.next(), nil
		},
	}

	// 8r0e	shl vr	shift register vr left,bit 7 goes into register vf
	shlInstruction = instruction{
		Name: regName("shl"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			x := vm.registers[op.x()]

			vm.registers[op.x()] = x << 1
			vm.registers[flagRegister] = x >> 7
			return vm.next(), nil
		},
	}

	// 9ry0	skne rx,ry	skip if register rx <> register ry
	skne2Instruction = instruction{
		Name: regRegName("skne"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			return vm.skipIf(vm.registers[op.x()] != vm.registers[op.y()]), nil
		},
	}

	// axxx	mvi xxx	Load index register with constant xxx
	mviInstruction = instruction{
		Name: addrName("mvi"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.index = op.nnn()
			return vm.next(), nil
		},
	}

	// bxxx	jmi xxx	Jump to address xxx+register v0
	jmiInstruction = instruction{
		Name: addrName("jmi"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			return op.nnn() + uint16(vm.registers[0]), nil
		},
	}

	// crxx	rand vr,xx	vr = random byte masked by xx
	randInstruction = instruction{
		Name: regImmName("rand"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] = uint8(vm.rand.UintN(256)) & op.nn()
			return vm.next(), nil
		},
	}

	// drys	sprite rx,ry,s	Draw sprite at screen location rx,ry height s
	// Sprites stored in memory at location in index register, 8 bits wide.
	// Wraps around the screen.
	// If when drawn, clears a pixel, vf is set to 1 otherwise it is zero.
	// All drawing is xor drawing (e.g. it toggles the screen pixels)
	spriteInstruction = instruction{
		Name: func(op opcode) string {
			return fmt.Sprintf("sprite v%x, v%x, %d", op.x(), op.y(), op.n())
		},
		Execute: func(vm *VM, op opcode) (uint16, error) {
			height := uint16(op.n())
			if err := vm.checkRange(vm.index, int(height)); err != nil {
				return 0, err
			}

			xLocation, yLocation := uint16(vm.registers[op.x()]), uint16(vm.registers[op.y()])

			hasCollision := false
			for y := uint16(0); y < height; y++ {
				pixel := vm.memory[vm.index+y]

				const width = uint16(8)
				for x := uint16(0); x < width; x++ {
					mask := uint8(0x80 >> x)
					if (pixel & mask) == 0 {
						continue
					}

					screenAddr := getScreenAddr(x+xLocation, y+yLocation)
					if vm.gfx[screenAddr] != 0 {
						hasCollision = true
					}

					vm.gfx[screenAddr] ^= 1
				}
			}

			vm.registers[flagRegister] = bit(hasCollision)
			vm.drawFlag = true
			return vm.next(), nil
		},
	}

	// ek9e	skpr k	skip if key (register rk) pressed	The key is a key number, see the chip-8 documentation
	skprInstruction = instruction{
		Name: regName("skpr"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			key := Key(vm.registers[op.x()])
			return vm.skipIf(vm.keypad.Pressed(key)), nil
		},
	}

	// eka1	skup k	skip if key (register rk) not pressed
	skupInstruction = instruction{
		Name: regName("skup"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			key := Key(vm.registers[op.x()])
			return vm.skipIf(!vm.keypad.Pressed(key)), nil
		},
	}

	// fr07	gdelay vr	get delay timer into vr
	gdelayInstruction = instruction{
		Name: regName("gdelay"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.registers[op.x()] = vm.delayTimer
			return vm.next(), nil
		},
	}

	// fr0a	key vr	wait for for keypress,put key in register vr
	// Later ticks only scan the keypad until a key is down.
	keyInstruction = instruction{
		Name: regName("key"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.waiting = true
			vm.waitRegister = op.x()
			return vm.next(), nil
		},
	}

	// fr15	sdelay vr	set the delay timer to vr
	sdelayInstruction = instruction{
		Name: regName("sdelay"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.delayTimer = vm.registers[op.x()]
			return vm.next(), nil
		},
	}

	// fr18	ssound vr	set the sound timer to vr
	ssoundInstruction = instruction{
		Name: regName("ssound"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.soundTimer = vm.registers[op.x()]
			return vm.next(), nil
		},
	}

	// fr1e	adi vr	add register vr to the index register
	adiInstruction = instruction{
		Name: regName("adi"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			vm.index += uint16(vm.registers[op.x()])
			return vm.next(), nil
		},
	}

	// fr29	font vr	point I to the sprite for hexadecimal character in vr	Sprite is 5 bytes high
	fontInstruction = instruction{
		Name: regName("font"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			digit := uint16(vm.registers[op.x()] & 0x0F)
			vm.index = fontAddr + digit*glyphSize
			return vm.next(), nil
		},
	}

	// fr33	bcd vr	store the bcd representation of register vr at location I,I+1,I+2	Doesn't change I
	bcdInstruction = instruction{
		Name: regName("bcd"),
		Execute: func(vm *VM, op opcode) (uint16, error) {
			if err := vm.checkRange(vm.index, 3); err != nil {
				return 0, err
			}

			x := vm.registers[op.x()]
			vm.memory[vm.index] = x / 100
			vm.memory[vm.index+1] = (x / 10) % 10
			vm.memory[vm.index+2] = x % 10
			return vm.next(), nil
		},
	}

	// fr55	str v0-vr	store registers v0-vr at location I onwards	Doesn't change I
	strInstruction = instruction{
		Name: func(op opcode) string {
			return fmt.Sprintf("str v0-v%x", op.x())
		},
		Execute: func(vm *VM, op opcode) (uint16, error) {
			n := uint16(op.x())
			if err := vm.checkRange(vm.index, int(n)+1); err != nil {
				return 0, err
			}

			copy(vm.memory[vm.index:vm.index+n+1], vm.registers[:n+1])
			return vm.next(), nil
		},
	}

	// fr65	ldr v0-vr	load registers v0-vr from location I onwards	Doesn't change I
	ldrInstruction = instruction{
		Name: func(op opcode) string {
			return fmt.Sprintf("ldr v0-v%x", op.x())
		},
		Execute: func(vm *VM, op opcode) (uint16, error) {
			n := uint16(op.x())
			if err := vm.checkRange(vm.index, int(n)+1); err != nil {
				return 0, err
			}

			copy(vm.registers[:n+1], vm.memory[vm.index:vm.index+n+1])
			return vm.next(), nil
		},
	}

	unknownInstruction = instruction{
		Name: func(op opcode) string {
			return fmt.Sprintf("unknown 0x%04X", uint16(op))
		},
		Execute: func(vm *VM, op opcode) (uint16, error) {
			return 0, &IllegalInstructionError{PC: vm.pc, Opcode: uint16(op)}
		},
	}
)
