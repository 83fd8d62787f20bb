package libhook

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// mapCode copies code to the start of a fresh page, leaves the page with
// protection prot and returns its address. The rest of the page is NOPs.
func mapCode(t *testing.T, prot int, code ...byte) uintptr {
	t.Helper()

	page, err := unix.Mmap(-1, 0, os.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Munmap(page)
	})

	for i := range page {
		page[i] = opcodeNOP
	}
	copy(page, code)

	require.NoError(t, unix.Mprotect(page, prot))
	return sliceAddr(page)
}

// currentProtection returns the protection of the page holding addr.
func currentProtection(t *testing.T, addr uintptr) int {
	t.Helper()

	start, size := pageRange(addr, 1)
	regions, err := queryProtection(start, size)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	return regions[0].prot
}

func readCode(addr uintptr, n int) []byte {
	buf := make([]byte, n)
	copy(buf, sliceAt(addr, n))
	return buf
}
