package libhook

import (
	"os"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func testMap(start, end uintptr, perms string) *procfs.ProcMap {
	return &procfs.ProcMap{
		StartAddr: start,
		EndAddr:   end,
		Perms: &procfs.ProcMapPermissions{
			Read:    perms[0] == 'r',
			Write:   perms[1] == 'w',
			Execute: perms[2] == 'x',
			Private: perms[3] == 'p',
		},
	}
}

var testMaps = []*procfs.ProcMap{
	testMap(0x00400000, 0x00452000, "r-xp"),
	testMap(0x00651000, 0x00652000, "r--p"),
	testMap(0x00652000, 0x00655000, "rw-p"),
	testMap(0x00e03000, 0x00e24000, "rw-p"),
}

func TestClipRegions(t *testing.T) {
	cases := map[string]struct {
		start, end uintptr
		expected   []protRegion
		err        bool
	}{
		"inside one region": {
			start: 0x00401000,
			end:   0x00403000,
			expected: []protRegion{
				{start: 0x00401000, size: 0x2000, prot: unix.PROT_READ | unix.PROT_EXEC},
			},
		},
		"spans regions": {
			start: 0x00651000,
			end:   0x00653000,
			expected: []protRegion{
				{start: 0x00651000, size: 0x1000, prot: unix.PROT_READ},
				{start: 0x00652000, size: 0x1000, prot: unix.PROT_READ | unix.PROT_WRITE},
			},
		},
		"gap": {
			start: 0x00451000,
			end:   0x00652000,
			err:   true,
		},
		"unmapped": {
			start: 0x10000000,
			end:   0x10001000,
			err:   true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			regions, err := clipRegions(testMaps, tc.start, tc.end)
			if tc.err {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tc.expected, regions)
			}
		})
	}
}

func TestMapProt(t *testing.T) {
	assert.Equal(t, unix.PROT_READ|unix.PROT_EXEC, mapProt(testMap(0, 0, "r-xp").Perms))
	assert.Equal(t, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, mapProt(testMap(0, 0, "rwxp").Perms))
	assert.Equal(t, unix.PROT_NONE, mapProt(testMap(0, 0, "---p").Perms))
	assert.Equal(t, unix.PROT_NONE, mapProt(nil))
}

func TestProtectionGuard(t *testing.T) {
	for name, prot := range map[string]int{
		"rx": unix.PROT_READ | unix.PROT_EXEC,
		"rw": unix.PROT_READ | unix.PROT_WRITE,
		"r":  unix.PROT_READ,
	} {
		t.Run(name, func(t *testing.T) {
			addr := mapCode(t, prot)
			require.Equal(t, prot, currentProtection(t, addr))

			g, err := acquireProtection(addr+8, 16)
			require.NoError(t, err)
			assert.Equal(t, mprotectRWX, currentProtection(t, addr))

			assert.NoError(t, g.release())
			assert.Equal(t, prot, currentProtection(t, addr))
		})
	}
}

func TestProtectionGuard_Unmapped(t *testing.T) {
	page, err := unix.Mmap(-1, 0, os.Getpagesize(), unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_ANON)
	require.NoError(t, err)
	addr := sliceAddr(page)
	require.NoError(t, unix.Munmap(page))

	_, err = acquireProtection(addr, 8)
	assert.ErrorIs(t, err, ErrProtection)
}

func TestWriteCode(t *testing.T) {
	prot := unix.PROT_READ | unix.PROT_EXEC
	addr := mapCode(t, prot, 0x01, 0x02, 0x03, 0x04)

	require.NoError(t, writeCode(addr+1, []byte{0xaa, 0xbb}))
	assert.Equal(t, []byte{0x01, 0xaa, 0xbb, 0x04}, readCode(addr, 4))
	assert.Equal(t, prot, currentProtection(t, addr))
}
