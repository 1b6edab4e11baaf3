//go:build !dreamcast

package holly

// On non-dreamcast targets there are no interrupt mask registers. Routing
// becomes a no-op, [Raise] remains the only event source.

func maskEnable(evt Event, irq IRQ) {}

func maskDisable(evt Event, irq IRQ) {}

// Ack clears a latched event from its status register.
func Ack(evt Event) {}
