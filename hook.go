package libhook

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Strategy selects how a Hook redirects its source.
type Strategy int

const (
	// Traditional overwrites the start of the source with a jump to the
	// destination. The original code is unreachable while applied.
	Traditional Strategy = iota

	// Detour does the same as Traditional, but first copies the
	// overwritten instructions into a trampoline that continues into the
	// rest of the source. See TrampolineAddress.
	Detour
)

func (s Strategy) String() string {
	switch s {
	case Traditional:
		return "traditional"
	case Detour:
		return "detour"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Hook redirects calls to a source address to a destination address.
//
// A Hook is not safe for concurrent use. Nothing stops other threads from
// executing the source while Apply or Remove rewrite it; callers must keep
// them out. Only one Hook should be applied to a source at a time.
type Hook struct {
	source      uintptr
	destination uintptr
	strategy    Strategy

	arch      *archConfig
	disasm    LengthDisassembler
	arena     allocator
	arenaSize int
	limit     int
	log       *zap.Logger

	saved      savedCode
	trampoline []byte
	patched    bool
}

// New returns a Hook that will redirect source to destination. It fails
// only when the private arena can't be created.
func New(source, destination uintptr, strategy Strategy, opts ...Option) (*Hook, error) {
	if source == 0 || destination == 0 {
		return nil, errors.New("source and destination must be non-nil")
	}
	if strategy != Traditional && strategy != Detour {
		return nil, fmt.Errorf("unknown strategy %v", strategy)
	}

	h := &Hook{
		source:      source,
		destination: destination,
		strategy:    strategy,
		arch:        nativeArch,
		arenaSize:   defaultArenaSize,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.disasm == nil {
		h.disasm = X86Disassembler{Mode: h.arch.mode}
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	h.log = h.log.With(
		zap.Stringer("strategy", h.strategy),
		zap.Uintptr("source", h.source),
		zap.Uintptr("destination", h.destination),
	)

	if h.arena == nil {
		a, err := newArena(h.arenaSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		h.arena = a
	}

	return h, nil
}

// NewTraditional is shorthand for New(source, destination, Traditional).
func NewTraditional(source, destination uintptr, opts ...Option) (*Hook, error) {
	return New(source, destination, Traditional, opts...)
}

// NewDetour is shorthand for New(source, destination, Detour).
func NewDetour(source, destination uintptr, opts ...Option) (*Hook, error) {
	return New(source, destination, Detour, opts...)
}

// Apply rewrites the source. Nothing at the source is modified unless
// every other step succeeded first.
func (h *Hook) Apply() error {
	if h.patched {
		return ErrAlreadyPatched
	}

	var err error
	switch h.strategy {
	case Traditional:
		err = h.applyTraditional()
	case Detour:
		err = h.applyDetour()
	}
	if err != nil {
		h.log.Debug("apply failed", zap.Error(err))
		return err
	}

	h.patched = true
	h.log.Debug("applied", zap.Int("length", h.saved.len()))
	return nil
}

// Remove restores the original bytes at the source and frees everything
// Apply allocated.
func (h *Hook) Remove() error {
	if !h.patched {
		return ErrNotPatched
	}

	err := writeCode(h.source, h.saved.buf)
	if err != nil {
		h.log.Debug("remove failed", zap.Error(err))
		return err
	}

	h.patched = false

	// The original code is back, so failing to free only leaks memory.
	if err := errors.Join(h.freeTrampoline(), h.saved.release(h.arena)); err != nil {
		h.log.Warn("unable to free hook buffers", zap.Error(err))
	}

	h.log.Debug("removed")
	return nil
}

// Close releases the hook's private arena. The hook must be removed first;
// Close never removes it implicitly.
func (h *Hook) Close() error {
	if h.patched {
		return ErrPatched
	}
	return h.arena.Close()
}

// capture saves the prologue and checks it against the patch limit.
func (h *Hook) capture() error {
	err := h.saved.capture(h.arena, h.disasm, h.source, h.arch.stubSize())
	if err != nil {
		return err
	}

	if h.limit > 0 && h.saved.len() > h.limit {
		err = fmt.Errorf("%w: %d > %d", ErrPrologueTooLong, h.saved.len(), h.limit)
		return errors.Join(err, h.saved.release(h.arena))
	}

	if ce := h.log.Check(zapcore.DebugLevel, "captured prologue"); ce != nil {
		text, err := listing(h.saved.buf, h.source, h.arch.mode)
		if err != nil {
			text = err.Error()
		}
		ce.Write(zap.Int("length", h.saved.len()), zap.String("code", text))
	}
	return nil
}

// Source returns the address being redirected.
func (h *Hook) Source() uintptr {
	return h.source
}

// Destination returns the address calls are redirected to.
func (h *Hook) Destination() uintptr {
	return h.destination
}

// Strategy returns the strategy the hook was created with.
func (h *Hook) Strategy() Strategy {
	return h.strategy
}

// Patched reports whether the hook is applied.
func (h *Hook) Patched() bool {
	return h.patched
}

// SavedBytes returns the original bytes overwritten at the source. It's
// only valid while the hook is applied and must not be modified.
func (h *Hook) SavedBytes() []byte {
	return h.saved.buf
}

// SavedLength returns the number of bytes overwritten at the source.
func (h *Hook) SavedLength() int {
	return h.saved.len()
}
