package libhook

import (
	"errors"
	"fmt"
)

// savedCode holds the original bytes from the start of a patched function.
type savedCode struct {
	buf          []byte
	instructions []Instruction
}

// capture copies the whole instructions covering at least minBytes at addr
// into a buffer from a. Nothing is kept if capture fails.
func (s *savedCode) capture(a allocator, d LengthDisassembler, addr uintptr, minBytes int) error {
	if s.buf != nil {
		return ErrAlreadyPatched
	}

	instructions, err := d.Decode(addr, minBytes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDisassemble, err)
	}
	n := safeLength(instructions)
	if n < minBytes {
		return fmt.Errorf("%w: %d bytes decoded, need %d", ErrDisassemble, n, minBytes)
	}

	if err := a.BeginMutate(); err != nil {
		return fmt.Errorf("%w: %w", ErrProtection, err)
	}

	buf, err := a.Allocate(n)
	if err != nil {
		return errors.Join(err, endMutate(a))
	}
	copy(buf, sliceAt(addr, n))

	if err := endMutate(a); err != nil {
		a.Free(buf)
		return err
	}

	s.buf = buf
	s.instructions = instructions
	return nil
}

// release frees the saved bytes. If the arena can't be made writable the
// buffer is leaked rather than written to.
func (s *savedCode) release(a allocator) error {
	if s.buf == nil {
		return nil
	}

	buf := s.buf
	s.buf = nil
	s.instructions = nil

	return freeBuffer(a, buf)
}

func (s *savedCode) len() int {
	return len(s.buf)
}

func freeBuffer(a allocator, buf []byte) error {
	if err := a.BeginMutate(); err != nil {
		return fmt.Errorf("%w: leaking %d bytes: %w", ErrProtection, len(buf), err)
	}
	a.Free(buf)
	return endMutate(a)
}

func endMutate(a allocator) error {
	if err := a.EndMutate(); err != nil {
		return fmt.Errorf("%w: %w", ErrProtection, err)
	}
	return nil
}
