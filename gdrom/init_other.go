//go:build !dreamcast

package gdrom

// Off target there is no bus to reactivate and no protection register. The
// remaining bring-up (reset, init, hooks, reinit) works against any
// [Syscalls] implementation.

func reactivateDrive() {}

func unlockDMAMemory() {}
