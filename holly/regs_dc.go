//go:build dreamcast

package holly

import "github.com/clktmr/dc/sh4"

// Interrupt status and mask registers. The three mask blocks select which
// events are routed to which CPU interrupt level.
const (
	istBase  sh4.Addr = 0x005f6900
	maskIRQD sh4.Addr = 0x005f6910
	maskIRQB sh4.Addr = 0x005f6920
	maskIRQ9 sh4.Addr = 0x005f6930
)

var maskBlocks = [3]sh4.Addr{maskIRQ9, maskIRQB, maskIRQD}

func maskReg(evt Event, irq IRQ) *uint32 {
	return sh4.MMIO[uint32](maskBlocks[irq] + sh4.Addr(evt.region())*4)
}

func maskEnable(evt Event, irq IRQ) {
	reg := maskReg(evt, irq)
	*reg |= 1 << evt.bit()
}

func maskDisable(evt Event, irq IRQ) {
	reg := maskReg(evt, irq)
	*reg &^= 1 << evt.bit()
}

// Ack clears a latched event from its status register.
func Ack(evt Event) {
	reg := sh4.MMIO[uint32](istBase + sh4.Addr(evt.region())*4)
	*reg = 1 << evt.bit()
}
