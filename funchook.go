package libhook

import (
	"fmt"
	"reflect"
)

// NewFuncHook returns a Hook that redirects the Go function fn to newFn. An
// error will be returned if fn or newFn are not functions or if their
// signatures do not match.
//
// The hook is limited to the length of fn, so a patch never spills into the
// function that follows it. The jump stub clobbers the first integer
// register (AX), which Go uses for the first argument, so fn's arguments
// are not reliably visible to newFn.
//
// Note that if fn has been inlined the hook will silently have no effect.
// If possible, add a noinline directive to work-around this problem:
//
//	//go:noinline
//	func myfunc() {
//		...
//	}
func NewFuncHook(fn, newFn any, strategy Strategy, opts ...Option) (*Hook, error) {
	fnv := reflect.ValueOf(fn)
	if fnv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, kind: %v", ErrNotAFunction, fnv.Kind())
	}
	newFnv := reflect.ValueOf(newFn)
	if newFnv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, kind: %v", ErrNotAFunction, newFnv.Kind())
	}
	if err := diffFuncs(fnv.Type(), newFnv.Type()); err != nil {
		return nil, err
	}

	entry := fnv.Pointer()
	if length := funcLength(entry); length > 0 {
		// Later options win, so a caller supplied limit still applies.
		opts = append([]Option{WithLimit(length)}, opts...)
	}

	return New(entry, newFnv.Pointer(), strategy, opts...)
}
