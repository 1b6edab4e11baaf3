//go:build dreamcast

package sh4

// InvalidateRange discards the data cache over the given range. If an address
// in the range is currently not cached, this is a no-op for that line.
func InvalidateRange(addr uintptr, length int)

// WritebackRange writes the data cache back to RAM over the given range.
func WritebackRange(addr uintptr, length int)

// FlushICacheRange invalidates the instruction cache over the given range.
// Required after writing code that will be executed, e.g. by the drive
// firmware's protection check.
func FlushICacheRange(addr uintptr, length int)
