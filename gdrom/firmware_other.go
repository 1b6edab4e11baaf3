//go:build !dreamcast

package gdrom

// Firmware returns the dispatcher backed by the boot ROM's syscall vectors,
// which exist only on the dreamcast target.
func Firmware() Syscalls {
	panic("gdrom: firmware syscalls are only available on the dreamcast target")
}
