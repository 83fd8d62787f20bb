package libhook

import (
	"errors"
	"fmt"
	"os"
)

// protRegion is a page aligned range with a single protection mode.
type protRegion struct {
	start uintptr
	size  int
	prot  int
}

// protectionGuard holds a range of pages writable and executable until
// release is called. release puts back the protection each page had
// before.
type protectionGuard struct {
	prior []protRegion
}

// pageRange rounds [addr, addr+length) out to whole pages.
func pageRange(addr uintptr, length int) (uintptr, int) {
	pageSize := uintptr(os.Getpagesize())

	// Round address down to page boundary.
	start := addr &^ (pageSize - 1)

	// Round up to cover complete pages.
	end := (addr + uintptr(length) + pageSize - 1) &^ (pageSize - 1)

	return start, int(end - start)
}

func acquireProtection(addr uintptr, length int) (*protectionGuard, error) {
	start, size := pageRange(addr, length)

	prior, err := queryProtection(start, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtection, err)
	}
	g := &protectionGuard{prior: prior}

	err = setProtection(start, size, mprotectRWX)
	if err != nil {
		// Some pages may have changed before the failure.
		return nil, errors.Join(fmt.Errorf("%w: %w", ErrProtection, err), g.release())
	}

	return g, nil
}

func (g *protectionGuard) release() error {
	var errs []error
	for _, r := range g.prior {
		err := setProtection(r.start, r.size, r.prot)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: restoring 0x%x: %w", ErrProtection, r.start, err))
		}
	}
	g.prior = nil
	return errors.Join(errs...)
}

// writeCode copies data over the code at addr. The pages are writable
// only for the duration of the copy.
func writeCode(addr uintptr, data []byte) (err error) {
	g, err := acquireProtection(addr, len(data))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, g.release())
	}()

	copy(sliceAt(addr, len(data)), data)
	return nil
}
