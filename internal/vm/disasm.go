package vm

import "fmt"

// Line is one disassembled instruction.
type Line struct {
	Addr   uint16
	Opcode uint16
	Text   string
}

func (l Line) String() string {
	return fmt.Sprintf("0x%04x  %04X  %s", l.Addr, l.Opcode, l.Text)
}

// Disassemble decodes program as if it were loaded at origin. Undefined
// opcodes are rendered rather than rejected, since programs routinely mix
// code and sprite data. A trailing odd byte is emitted as data.
func Disassemble(program []byte, origin uint16) []Line {
	lines := make([]Line, 0, (len(program)+1)/InstructionSize)

	i := 0
	for ; i+1 < len(program); i += InstructionSize {
		op := opcode(uint16(program[i])<<8 | uint16(program[i+1]))
		instr, _ := decode(op)

		lines = append(lines, Line{
			Addr:   origin + uint16(i),
			Opcode: uint16(op),
			Text:   instr.Name(op),
		})
	}

	if i < len(program) {
		lines = append(lines, Line{
			Addr:   origin + uint16(i),
			Opcode: uint16(program[i]),
			Text:   fmt.Sprintf("db 0x%02x", program[i]),
		})
	}

	return lines
}
