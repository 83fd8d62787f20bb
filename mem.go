package libhook

import "unsafe"

// sliceAt returns a view of n bytes of memory at addr.
func sliceAt(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

func sliceAddr(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

// funcAt converts a code address into a function value of type T. The
// caller is responsible for T matching the code's calling convention.
func funcAt[T any](entry uintptr) T {
	// A func value points to a funcval whose first word is the entry PC.
	ref := new(uintptr)
	*ref = entry
	return *(*T)(unsafe.Pointer(&ref))
}
