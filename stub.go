package libhook

import (
	"encoding/binary"
	"fmt"
	"math"
)

const opcodeNOP = 0x90

// archConfig describes the absolute jump stub for one word width.
type archConfig struct {
	name string

	// Decoder mode passed to x86asm (32 or 64).
	mode int

	// template is the complete stub with a placeholder operand. The
	// destination is written at operandOffset, wordSize bytes wide.
	template      []byte
	operandOffset int
	wordSize      int
}

var (
	// MOV EAX, imm32
	// JMP EAX
	arch386 = &archConfig{
		name:          "386",
		mode:          32,
		template:      []byte{0xc7, 0xc0, 0xdd, 0xcc, 0xbb, 0xaa, 0xff, 0xe0},
		operandOffset: 2,
		wordSize:      4,
	}

	// MOV RAX, imm64
	// JMP RAX
	archAMD64 = &archConfig{
		name:          "amd64",
		mode:          64,
		template:      []byte{0x48, 0xb8, 0xef, 0xcd, 0xab, 0x90, 0x78, 0x56, 0x34, 0x12, 0xff, 0xe0},
		operandOffset: 2,
		wordSize:      8,
	}
)

func (a *archConfig) stubSize() int {
	return len(a.template)
}

// encodeJump writes a jump to dest at the start of buf.
func (a *archConfig) encodeJump(buf []byte, dest uintptr) error {
	if len(buf) < a.stubSize() {
		return fmt.Errorf("buffer too small for jump stub: %d < %d", len(buf), a.stubSize())
	}

	copy(buf, a.template)
	switch a.wordSize {
	case 4:
		if uint64(dest) > math.MaxUint32 {
			return fmt.Errorf("jump target 0x%x does not fit in a 32-bit stub", dest)
		}
		binary.LittleEndian.PutUint32(buf[a.operandOffset:], uint32(dest))
	case 8:
		binary.LittleEndian.PutUint64(buf[a.operandOffset:], uint64(dest))
	default:
		return fmt.Errorf("unsupported word size %d", a.wordSize)
	}
	return nil
}

// patch returns a jump to dest padded with NOPs to exactly length bytes.
func (a *archConfig) patch(dest uintptr, length int) ([]byte, error) {
	if length < a.stubSize() {
		return nil, fmt.Errorf("patch length %d is shorter than the %d byte stub", length, a.stubSize())
	}

	buf := make([]byte, length)
	if err := a.encodeJump(buf, dest); err != nil {
		return nil, err
	}
	for i := a.stubSize(); i < length; i++ {
		buf[i] = opcodeNOP
	}
	return buf, nil
}

// jumpTarget decodes the destination of a stub previously written by
// encodeJump. ok is false if buf does not hold a stub.
func (a *archConfig) jumpTarget(buf []byte) (dest uintptr, ok bool) {
	if len(buf) < a.stubSize() {
		return 0, false
	}
	for i, b := range a.template {
		if i >= a.operandOffset && i < a.operandOffset+a.wordSize {
			continue
		}
		if buf[i] != b {
			return 0, false
		}
	}

	switch a.wordSize {
	case 4:
		return uintptr(binary.LittleEndian.Uint32(buf[a.operandOffset:])), true
	case 8:
		return uintptr(binary.LittleEndian.Uint64(buf[a.operandOffset:])), true
	}
	return 0, false
}
