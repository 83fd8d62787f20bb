package libhook

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// maxInstructionLen is the architectural limit for a single x86
// instruction.
const maxInstructionLen = 15

// Instruction describes one decoded instruction.
type Instruction struct {
	// Len is the encoded length in bytes.
	Len int

	// Relative is true if the instruction has an operand that is relative
	// to its own address. Such instructions change meaning when copied.
	Relative bool
}

// LengthDisassembler decodes whole instructions from code in memory.
type LengthDisassembler interface {
	// Decode decodes instructions starting at addr until their combined
	// length is at least minBytes.
	Decode(addr uintptr, minBytes int) ([]Instruction, error)
}

// X86Disassembler is a LengthDisassembler for 32 and 64-bit x86 code.
type X86Disassembler struct {
	// Mode is 32 or 64.
	Mode int

	// MaxInstructions limits the number of instructions that will be
	// decoded. Zero means minBytes, which is always sufficient.
	MaxInstructions int
}

// Decode implements LengthDisassembler.
func (d X86Disassembler) Decode(addr uintptr, minBytes int) ([]Instruction, error) {
	if addr == 0 {
		return nil, errors.New("nil address")
	}
	if minBytes <= 0 {
		return nil, fmt.Errorf("invalid length %d", minBytes)
	}

	limit := d.MaxInstructions
	if limit == 0 {
		limit = minBytes
	}
	instructions := make([]Instruction, 0, limit)

	for total := 0; total < minBytes; {
		if len(instructions) == limit {
			return nil, fmt.Errorf("more than %d instructions needed to cover %d bytes", limit, minBytes)
		}

		inst, err := x86asm.Decode(sliceAt(addr+uintptr(total), maxInstructionLen), d.Mode)
		if err != nil {
			return nil, fmt.Errorf("decode error at offset %d: %w", total, err)
		}

		instructions = append(instructions, Instruction{
			Len:      inst.Len,
			Relative: isRelative(inst),
		})
		total += inst.Len
	}

	return instructions, nil
}

func isRelative(inst x86asm.Inst) bool {
	for _, arg := range inst.Args {
		switch a := arg.(type) {
		case x86asm.Rel:
			return true
		case x86asm.Mem:
			if a.Base == x86asm.RIP || a.Base == x86asm.EIP {
				return true
			}
		}
	}
	return false
}

// safeLength returns the number of bytes covered by instructions.
func safeLength(instructions []Instruction) int {
	n := 0
	for _, inst := range instructions {
		n += inst.Len
	}
	return n
}

func hasRelative(instructions []Instruction) (int, bool) {
	offset := 0
	for _, inst := range instructions {
		if inst.Relative {
			return offset, true
		}
		offset += inst.Len
	}
	return 0, false
}

// listing formats code as one instruction per line.
func listing(code []byte, base uintptr, mode int) (string, error) {
	var buf bytes.Buffer

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], mode)
		if err != nil {
			return "", fmt.Errorf("decode error at offset %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", base+uintptr(i), hex.EncodeToString(code[i:i+instruction.Len]), instruction.String())

		i += instruction.Len
	}

	return buf.String(), nil
}
