package libhook

import (
	"errors"
	"fmt"
)

// applyDetour builds a trampoline before patching the source. The
// trampoline is laid out as:
//
//	[relocated prologue][jump to source+len(prologue)]
//
// so calling the trampoline runs the original function. There's no entry
// jump to the destination at the front: it would make the trampoline's
// address lead straight back into the destination.
//
// Relocated instructions are copied verbatim, so prologues with
// instructions relative to their own address are rejected.
func (h *Hook) applyDetour() error {
	err := h.capture()
	if err != nil {
		return err
	}

	if offset, ok := hasRelative(h.saved.instructions); ok {
		err = fmt.Errorf("%w: instruction at offset %d", ErrRelativeAddress, offset)
		return errors.Join(err, h.saved.release(h.arena))
	}

	err = h.buildTrampoline()
	if err != nil {
		return errors.Join(err, h.saved.release(h.arena))
	}

	patch, err := h.arch.patch(h.destination, h.saved.len())
	if err == nil {
		err = writeCode(h.source, patch)
	}
	if err != nil {
		return errors.Join(err, h.freeTrampoline(), h.saved.release(h.arena))
	}

	return nil
}

func (h *Hook) buildTrampoline() error {
	n := h.saved.len()

	if err := h.arena.BeginMutate(); err != nil {
		return fmt.Errorf("%w: %w", ErrProtection, err)
	}

	buf, err := h.arena.Allocate(n + h.arch.stubSize())
	if err != nil {
		return errors.Join(err, endMutate(h.arena))
	}

	copy(buf, h.saved.buf)
	err = h.arch.encodeJump(buf[n:], h.source+uintptr(n))
	if err != nil {
		h.arena.Free(buf)
		return errors.Join(err, endMutate(h.arena))
	}

	// A failed EndMutate leaves the arena writable, so buf can still go back.
	if err := endMutate(h.arena); err != nil {
		h.arena.Free(buf)
		return err
	}

	h.trampoline = buf
	return nil
}

func (h *Hook) freeTrampoline() error {
	if h.trampoline == nil {
		return nil
	}

	buf := h.trampoline
	h.trampoline = nil
	return freeBuffer(h.arena, buf)
}

// TrampolineAddress returns the address of the trampoline for a Detour
// hook. Calling it behaves like the unhooked source. The result is zero
// unless the hook is applied, and must not be used after Remove.
func (h *Hook) TrampolineAddress() uintptr {
	if h.trampoline == nil {
		return 0
	}
	return sliceAddr(h.trampoline)
}

// Trampoline returns the trampoline of an applied Detour hook as a function
// of type T. T must match the source's signature. The zero value is
// returned if there is no trampoline.
func Trampoline[T any](h *Hook) T {
	addr := h.TrampolineAddress()
	if addr == 0 {
		var zero T
		return zero
	}
	return funcAt[T](addr)
}
