package libhook

import "go.uber.org/zap"

// defaultArenaSize matches the initial size of the private heap in the
// original design. The arena grows as needed.
const defaultArenaSize = 256

// Option configures a Hook.
type Option func(*Hook)

// WithDisassembler replaces the x86 disassembler used to find instruction
// boundaries.
func WithDisassembler(d LengthDisassembler) Option {
	return func(h *Hook) {
		h.disasm = d
	}
}

// WithLogger sets a logger for debug output. The default discards
// everything.
func WithLogger(l *zap.Logger) Option {
	return func(h *Hook) {
		h.log = l
	}
}

// WithArenaSize sets the initial size of the hook's private arena.
func WithArenaSize(size int) Option {
	return func(h *Hook) {
		h.arenaSize = size
	}
}

// WithLimit sets the maximum number of bytes that may be overwritten at
// the source address. Zero means no limit.
func WithLimit(n int) Option {
	return func(h *Hook) {
		h.limit = n
	}
}

func withArch(a *archConfig) Option {
	return func(h *Hook) {
		h.arch = a
	}
}

func withAllocator(a allocator) Option {
	return func(h *Hook) {
		h.arena = a
	}
}
