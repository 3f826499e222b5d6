package vm

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalInstruction = errors.New("illegal instruction")
	ErrStackOverflow      = errors.New("stack overflow")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrMemoryOutOfRange   = errors.New("memory out of range")
)

// IllegalInstructionError is returned by Tick when the fetched opcode has no
// defined meaning. No state is modified for that cycle.
type IllegalInstructionError struct {
	PC     uint16
	Opcode uint16
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("illegal instruction 0x%04X at 0x%04x", e.Opcode, e.PC)
}

func (e *IllegalInstructionError) Unwrap() error {
	return ErrIllegalInstruction
}

// MemoryError is returned when an instruction fetch or an access through
// the index register falls outside memory.
type MemoryError struct {
	PC   uint16
	Addr uint16
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory address 0x%04x out of range at 0x%04x", e.Addr, e.PC)
}

func (e *MemoryError) Unwrap() error {
	return ErrMemoryOutOfRange
}
