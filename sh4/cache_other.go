//go:build !dreamcast

package sh4

// On non-dreamcast targets there is no memory shared with other bus masters,
// cache maintenance degrades to no-ops. This keeps driver code and its tests
// runnable on the host.

func InvalidateRange(addr uintptr, length int) {}

func WritebackRange(addr uintptr, length int) {}

func FlushICacheRange(addr uintptr, length int) {}
