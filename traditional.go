package libhook

import "errors"

// applyTraditional overwrites the prologue with a jump to the destination.
// The jump is padded with NOPs so no partial instruction is left behind.
func (h *Hook) applyTraditional() error {
	err := h.capture()
	if err != nil {
		return err
	}

	patch, err := h.arch.patch(h.destination, h.saved.len())
	if err == nil {
		err = writeCode(h.source, patch)
	}
	if err != nil {
		return errors.Join(err, h.saved.release(h.arena))
	}

	return nil
}
