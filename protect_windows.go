//go:build windows

package libhook

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	mprotectExec = windows.PAGE_EXECUTE
	mprotectRX   = windows.PAGE_EXECUTE_READ
	mprotectRWX  = windows.PAGE_EXECUTE_READWRITE
)

func setProtection(start uintptr, size int, prot int) error {
	var oldFlags uint32
	return windows.VirtualProtect(start, uintptr(size), uint32(prot), &oldFlags)
}

// queryProtection walks [start, start+size) with VirtualQuery. Each call
// describes one run of pages that share the same attributes.
func queryProtection(start uintptr, size int) ([]protRegion, error) {
	var regions []protRegion

	end := start + uintptr(size)
	for cursor := start; cursor < end; {
		var info windows.MemoryBasicInformation
		err := windows.VirtualQuery(cursor, &info, unsafe.Sizeof(info))
		if err != nil {
			return nil, err
		}

		regionEnd := min(info.BaseAddress+info.RegionSize, end)
		regions = append(regions, protRegion{
			start: cursor,
			size:  int(regionEnd - cursor),
			prot:  int(info.Protect),
		})
		cursor = regionEnd
	}

	return regions, nil
}
