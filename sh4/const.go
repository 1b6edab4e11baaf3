package sh4

import "unsafe"

// The CPU's clock speed
const ClockSpeed = 200e6

// Memory regions in privileged mode
const (
	P1 uintptr = 0x8000_0000 // unmapped, cached
	P2 uintptr = 0xa000_0000 // unmapped, uncached

	regionMask uintptr = 0xe000_0000
)

// Addr represents a physical memory address
type Addr uint32

// PhysicalAddress returns the physical address of a virtual address in P1 or
// P2.
func PhysicalAddress(addr uintptr) Addr {
	return Addr(addr & ^regionMask)
}

// Same as [PhysicalAddress] but for slices.
func PhysicalAddressSlice(s []byte) Addr {
	return PhysicalAddress(uintptr(unsafe.Pointer(unsafe.SliceData(s))))
}

// AddressSlice returns the virtual address of the first element of s.
func AddressSlice(s []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(s)))
}

// Uncached reports whether addr lies in the uncached P2 window. Reads and
// writes through P2 bypass the data cache entirely, so no cache maintenance
// is needed for buffers placed there.
func Uncached(addr uintptr) bool {
	return addr&regionMask == P2
}

// MMIO returns a pointer to a memory mapped IO register or area of type T.
func MMIO[T any](addr Addr) *T {
	return (*T)(unsafe.Pointer(uintptr(addr) | P2))
}
