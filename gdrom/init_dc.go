//go:build dreamcast

package gdrom

import (
	"unsafe"

	"github.com/clktmr/dc/sh4"
)

// DMA protection register and its unlock values. The firmware restricts
// G1 DMA destinations to system memory; rewriting the check's constants
// upgrades it to all of memory.
const (
	dmaProtection sh4.Addr = 0x005f74b8

	dmaUnlockCode   = 0x8843
	dmaUnlockSysmem = dmaUnlockCode<<16 | 0x407f
	dmaUnlockAllmem = dmaUnlockCode<<16 | 0x007f
)

// Drive reactivation register. Writing the BIOS size and reading each word
// back across the bus lets the controller verify the ROM.
const reactivation sh4.Addr = 0x005f74e4

// reactivateDrive performs the bus reactivation read sweep. Hardware fitted
// with a custom BIOS announces itself with 0xe6ff in the ROM's first word
// (instead of the usual 0xe3ff) and passes verification with only the first
// kilobyte.
func reactivateDrive() {
	react := sh4.MMIO[uint32](reactivation)
	bios := sh4.MMIO[[0x200000 / 4]uint32](0x0)

	if *sh4.MMIO[uint16](0x0) == 0xe6ff {
		*react = 0x3ff
		for p := range 0x400 / 4 {
			_ = bios[p]
		}
	} else {
		*react = 0x1fffff
		for p := range 0x200000 / 4 {
			_ = bios[p]
		}
	}
}

// unlockDMAMemory scans the firmware's work area for the system-memory-only
// unlock pattern and upgrades every occurrence to all-memory, flushes the
// instruction cache over the patched range and writes the protection
// register directly.
func unlockDMAMemory() {
	const sizeLoc = 16 << 10
	startLoc := uintptr(0x0c000000) | sh4.P2

	count := 0
	for cur := startLoc; cur <= startLoc+sizeLoc; cur += 4 {
		p := (*uint32)(unsafe.Pointer(cur))
		if *p == dmaUnlockSysmem {
			*p = dmaUnlockAllmem
			count++
		}
	}
	if count > 0 {
		sh4.FlushICacheRange(uintptr(0x0c000000)|sh4.P1, sizeLoc)
	}
	*sh4.MMIO[uint32](dmaProtection) = dmaUnlockAllmem
}
