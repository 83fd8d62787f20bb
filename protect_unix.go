//go:build unix && !linux

package libhook

import "golang.org/x/sys/unix"

const (
	mprotectExec = unix.PROT_EXEC
	mprotectRX   = unix.PROT_READ | unix.PROT_EXEC
	mprotectRWX  = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

func setProtection(start uintptr, size int, prot int) error {
	return unix.Mprotect(sliceAt(start, size), prot)
}

// queryProtection assumes code pages are read-execute. There's no portable
// way to ask for the current protection outside of Linux.
func queryProtection(start uintptr, size int) ([]protRegion, error) {
	return []protRegion{{start: start, size: size, prot: mprotectRX}}, nil
}
