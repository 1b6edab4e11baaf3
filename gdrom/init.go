package gdrom

import (
	"github.com/clktmr/dc/holly"
)

// Init brings up the drive: reactivates it on the bus, resets and
// reinitializes the controller firmware, unlocks the DMA protection
// register, installs the G1 DMA interrupt handler and the vertical blank
// poll hook, and performs a default drive reinitialization.
//
// Init is idempotent; a second call is a no-op.
func (d *Driver) Init() error {
	if d.inited {
		return nil
	}

	d.mu.Lock()
	reactivateDrive()
	d.sys.Reset()
	d.sys.Init()
	unlockDMAMemory()
	d.mu.Unlock()

	// Hook all the DMA related events. They are shared with the ATA
	// device class, so keep the displaced handler for chaining.
	d.oldDMAIRQ = holly.SetHandler(holly.EvtGDDMA, d.dmaIRQ, nil)
	holly.SetHandler(holly.EvtGDDMAOverrun, d.dmaIRQ, nil)
	holly.SetHandler(holly.EvtGDDMAIllAddr, d.dmaIRQ, nil)

	if d.oldDMAIRQ.Fn == nil {
		holly.Enable(holly.EvtGDDMA, holly.IRQB)
		holly.Enable(holly.EvtGDDMAOverrun, holly.IRQB)
		holly.Enable(holly.EvtGDDMAIllAddr, holly.IRQB)
	}

	d.vblankID = holly.VBlankAdd(d.vblankPoll, nil)
	d.inited = true

	return d.Reinit()
}

// Shutdown removes the poll hook and either restores the previously
// installed G1 DMA handler or, if the driver installed the first one,
// disables and removes the three event sources. No-op if not initialized.
func (d *Driver) Shutdown() {
	if !d.inited {
		return
	}

	holly.VBlankRemove(d.vblankID)

	if d.oldDMAIRQ.Fn != nil {
		holly.SetHandler(holly.EvtGDDMA, d.oldDMAIRQ.Fn, d.oldDMAIRQ.Arg)
		holly.SetHandler(holly.EvtGDDMAOverrun, d.oldDMAIRQ.Fn, d.oldDMAIRQ.Arg)
		holly.SetHandler(holly.EvtGDDMAIllAddr, d.oldDMAIRQ.Fn, d.oldDMAIRQ.Arg)
		d.oldDMAIRQ = holly.HandlerEntry{}
	} else {
		holly.Disable(holly.EvtGDDMA, holly.IRQB)
		holly.RemoveHandler(holly.EvtGDDMA)
		holly.Disable(holly.EvtGDDMAOverrun, holly.IRQB)
		holly.RemoveHandler(holly.EvtGDDMAOverrun)
		holly.Disable(holly.EvtGDDMAIllAddr, holly.IRQB)
		holly.RemoveHandler(holly.EvtGDDMAIllAddr)
	}
	d.inited = false
}
