package libhook

import "unsafe"

type funcInfo struct {
	_func unsafe.Pointer
	datap *moduledata
}

// moduledata mirrors the leading fields of runtime.moduledata, which is
// written by the linker. Only the fields up to etext are used. Any changes
// in cmd/link/internal/ld/symtab.go:symtab must be matched here.
type moduledata struct {
	pcHeader     unsafe.Pointer
	funcnametab  []byte
	cutab        []uint32
	filetab      []byte
	pctab        []byte
	pclntable    []byte
	ftab         []functab
	findfunctab  uintptr
	minpc, maxpc uintptr

	text, etext uintptr

	// Struct continues, omitting unused fields.
}

type functab struct {
	entryoff uint32 // relative to runtime.text
	funcoff  uint32
}

//go:linkname findfunc runtime.findfunc
func findfunc(pc uintptr) funcInfo

// funcLength returns the number of bytes between entry and the start of the
// next function, or 0 if entry isn't a known function.
func funcLength(entry uintptr) int {
	info := findfunc(entry)
	if info._func == nil || info.datap == nil {
		return 0
	}

	// To find the length, look at the offsets of every function and find
	// the one that comes immediately after this one.
	funcOffset := uint32(entry - info.datap.text)
	length := uint32(info.datap.etext - entry)

	for _, ft := range info.datap.ftab {
		if ft.entryoff <= funcOffset {
			continue
		}

		if testLength := ft.entryoff - funcOffset; testLength < length {
			length = testLength
		}
	}

	return int(length)
}
