package libhook

import (
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

const (
	mprotectExec = unix.PROT_EXEC
	mprotectRX   = unix.PROT_READ | unix.PROT_EXEC
	mprotectRWX  = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

func setProtection(start uintptr, size int, prot int) error {
	return unix.Mprotect(sliceAt(start, size), prot)
}

// queryProtection reads the current protection of [start, start+size) from
// the process's memory maps.
func queryProtection(start uintptr, size int) ([]protRegion, error) {
	self, err := procfs.Self()
	if err != nil {
		return nil, err
	}

	maps, err := self.ProcMaps()
	if err != nil {
		return nil, err
	}

	return clipRegions(maps, start, start+uintptr(size))
}

// clipRegions returns the parts of maps that cover [start, end). maps must
// be sorted by address. Every byte in the range has to be mapped.
func clipRegions(maps []*procfs.ProcMap, start, end uintptr) ([]protRegion, error) {
	var regions []protRegion

	cursor := start
	for _, m := range maps {
		if cursor >= end {
			break
		}
		if m.EndAddr <= cursor {
			continue
		}
		if m.StartAddr > cursor {
			return nil, fmt.Errorf("address 0x%x is not mapped", cursor)
		}

		clipped := min(m.EndAddr, end)
		regions = append(regions, protRegion{
			start: cursor,
			size:  int(clipped - cursor),
			prot:  mapProt(m.Perms),
		})
		cursor = clipped
	}

	if cursor < end {
		return nil, fmt.Errorf("address 0x%x is not mapped", cursor)
	}
	return regions, nil
}

func mapProt(perms *procfs.ProcMapPermissions) int {
	prot := unix.PROT_NONE
	if perms == nil {
		return prot
	}
	if perms.Read {
		prot |= unix.PROT_READ
	}
	if perms.Write {
		prot |= unix.PROT_WRITE
	}
	if perms.Execute {
		prot |= unix.PROT_EXEC
	}
	return prot
}
