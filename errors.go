package libhook

import "errors"

var (
	// ErrAlreadyPatched means Apply was called on an applied hook.
	ErrAlreadyPatched = errors.New("hook already applied")
	// ErrNotPatched means Remove was called on a hook that isn't applied.
	ErrNotPatched = errors.New("hook not applied")
	// ErrPatched means the hook must be removed before it can be closed.
	ErrPatched = errors.New("hook is still applied")
	// ErrDisassemble means a safe patch length could not be computed.
	ErrDisassemble = errors.New("unable to disassemble prologue")
	// ErrAllocation means an arena allocation failed.
	ErrAllocation = errors.New("allocation failed")
	// ErrProtection means page protection could not be changed.
	ErrProtection = errors.New("unable to change memory protection")
	// ErrRelativeAddress means the prologue can't be relocated.
	ErrRelativeAddress = errors.New("relative address in prologue")
	// ErrPrologueTooLong means the patch would extend past the limit.
	ErrPrologueTooLong = errors.New("prologue exceeds patch limit")
	// ErrArenaClosed means the hook has been closed.
	ErrArenaClosed = errors.New("arena closed")
	// ErrNotAFunction means an argument was not a func.
	ErrNotAFunction = errors.New("not a function")
	// ErrSignatureMismatch means two funcs have different types.
	ErrSignatureMismatch = errors.New("function signatures do not match")
)
