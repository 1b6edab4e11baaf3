// The CPU accesses RAM through a cache and in general assumes that there are
// no other readers or writers. Since the stored value in the cache can divert
// from the stored value in RAM for a limited amount of time, we need to sync
// both before other components are involved.
package sh4

import (
	"unsafe"

	"github.com/clktmr/dc/debug"
)

// All cache operations affect whole cache lines.
const CacheLineSize = 32

// Cache operations always affect a whole cache line. To avoid invalidating
// unrelated data in a cache line, pad structs with CacheLinePad at the
// beginning and end.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// A slice that is safe for cache ops. Its start is aligned to CacheLineSize
// and the end is padded to fill the cache line. Note that using append()
// might corrupt the padding.
func MakePaddedSlice[T any](size int) []T {
	var t T
	cls := CacheLineSize / int(unsafe.Sizeof(t))
	buf := make([]T, 0, cls+size+cls)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	shift := (CacheLineSize - int(addr)%CacheLineSize) / int(unsafe.Sizeof(t))
	return buf[shift : shift+size]
}

// Ensure a slice is padded. Might copy the slice if necessary
func PaddedSlice[T any](slice []T) []T {
	if IsPadded(slice) == false {
		buf := MakePaddedSlice[T](len(slice))
		copy(buf, slice)
		return buf
	}
	return slice
}

// Returns true if p is safe for cache ops, i.e. padded and aligned to cache.
func IsPadded[T any](p []T) bool {
	var t T
	cls := CacheLineSize / int(unsafe.Sizeof(t))

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	return addr%CacheLineSize == 0 && cap(p)-len(p) >= cls-len(p)%cls
}

// InvalidateSlice causes the cache to be read from RAM before next access.
// Call this before the address range is to be written by another component.
func InvalidateSlice[T any](buf []T) {
	debug.Assert(IsPadded(buf), "unpadded cache invalidate")

	var t T
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	InvalidateRange(addr, len(buf)*int(unsafe.Sizeof(t)))
}

// WritebackSlice causes the cache to be written back to RAM. Call this before
// requesting another component to read from this address range.
func WritebackSlice[T any](buf []T) {
	debug.Assert(IsPadded(buf), "unpadded cache writeback")

	var t T
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	WritebackRange(addr, len(buf)*int(unsafe.Sizeof(t)))
}
