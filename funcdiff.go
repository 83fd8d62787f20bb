package libhook

import (
	"errors"
	"fmt"
	"reflect"
)

// diffFuncs returns nil if a and b have the same parameters and results.
// Otherwise it returns an ErrSignatureMismatch describing every difference.
func diffFuncs(a, b reflect.Type) error {
	errs := []error{}

	for i := range max(a.NumIn(), b.NumIn()) {
		if x, y := typeAt(a.NumIn(), a.In, i), typeAt(b.NumIn(), b.In, i); x != y {
			errs = append(errs, fmt.Errorf("argument %d: %v != %v", i, x, y))
		}
	}
	for i := range max(a.NumOut(), b.NumOut()) {
		if x, y := typeAt(a.NumOut(), a.Out, i), typeAt(b.NumOut(), b.Out, i); x != y {
			errs = append(errs, fmt.Errorf("output %d: %v != %v", i, x, y))
		}
	}
	if a.IsVariadic() != b.IsVariadic() {
		errs = append(errs, fmt.Errorf("variadic: %v != %v", a.IsVariadic(), b.IsVariadic()))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSignatureMismatch, errors.Join(errs...))
}

func typeAt(n int, get func(int) reflect.Type, i int) reflect.Type {
	if i >= n {
		return nil
	}
	return get(i)
}
