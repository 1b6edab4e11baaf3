// Package holly manages the event fabric of the HOLLY system ASIC. All
// peripheral interrupts are multiplexed over three status registers (normal,
// external, error) and can be routed to one of three CPU interrupt levels.
//
// Handlers run in interrupt context: they must not block and should only flip
// flags and signal waiters. Decision logic belongs in thread context.
package holly

import (
	"sync"
	"sync/atomic"
)

// Event identifies a single event line, encoded as region<<8 | bit.
type Event uint16

const (
	EvtVBlankIn  Event = 0x0003
	EvtVBlankOut Event = 0x0004
	EvtGDDMA     Event = 0x000e

	EvtGDDMAIllAddr Event = 0x020c
	EvtGDDMAOverrun Event = 0x020d
)

func (e Event) region() int { return int(e >> 8) }
func (e Event) bit() int    { return int(e & 0x1f) }

// IRQ selects the CPU interrupt level an event is routed to.
type IRQ uint8

const (
	IRQ9 IRQ = iota
	IRQB
	IRQD
)

// Handler is called in interrupt context with the event that fired and the
// arg it was registered with.
type Handler func(evt Event, arg any)

// HandlerEntry is a registered handler together with its arg. Drivers that
// share event lines with other peripherals keep the entry returned by
// [SetHandler] and chain to it from their own handler.
type HandlerEntry struct {
	Fn  Handler
	Arg any
}

var (
	mu       sync.Mutex
	handlers [3][32]HandlerEntry
	nesting  atomic.Int32
)

// SetHandler registers fn for evt and returns the previously registered
// entry, which may be zero.
func SetHandler(evt Event, fn Handler, arg any) (old HandlerEntry) {
	mu.Lock()
	defer mu.Unlock()
	old = handlers[evt.region()][evt.bit()]
	handlers[evt.region()][evt.bit()] = HandlerEntry{fn, arg}
	return
}

// RemoveHandler unregisters the handler for evt.
func RemoveHandler(evt Event) (old HandlerEntry) {
	mu.Lock()
	defer mu.Unlock()
	old = handlers[evt.region()][evt.bit()]
	handlers[evt.region()][evt.bit()] = HandlerEntry{}
	return
}

// Enable routes evt to the given interrupt level.
func Enable(evt Event, irq IRQ) { maskEnable(evt, irq) }

// Disable stops routing evt to the given interrupt level. The event still
// gets latched in the status register and must be acknowledged if it fires.
func Disable(evt Event, irq IRQ) { maskDisable(evt, irq) }

// Raise dispatches evt to its registered handler. On hardware it is called
// from the interrupt entry after reading the pending status registers; in
// tests and emulation it stands in for the hardware raising the line.
//
//go:nosplit
func Raise(evt Event) {
	nesting.Add(1)
	entry := handlers[evt.region()][evt.bit()]
	if entry.Fn != nil {
		entry.Fn(evt, entry.Arg)
	}
	nesting.Add(-1)
}

// InHandler reports whether the caller runs in interrupt context.
func InHandler() bool {
	return nesting.Load() > 0
}
