package gdrom

import (
	"runtime"

	"github.com/clktmr/dc/debug"
	"github.com/clktmr/dc/holly"
	"github.com/clktmr/dc/holly/g1"
	"github.com/clktmr/dc/sh4"
)

// sema is a binary semaphore. Interrupt handlers are the producers, thread
// context consumes; signal never blocks.
type sema chan struct{}

func (s sema) signal() {
	select {
	case s <- struct{}{}:
	default:
	}
}

func (s sema) wait() { <-s }

// drain consumes a pending signal without blocking, reports whether there
// was one.
func (s sema) drain() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}

// DMA transfers require the buffer's physical address to be aligned to the
// burst size; PIO transfers to the host bus width.
const (
	dmaAlign = 32
	pioAlign = 2
)

// readDMABlocking runs a full DMA read command, sleeping on the DMA
// completion semaphore instead of spinning while the hardware moves
// multiple sectors.
func (d *Driver) readDMABlocking(params *ReadParams) error {
	d.lockBus()
	defer d.mu.Unlock()

	hnd := d.submit(CmdDMARead, params)
	d.hnd.Store(int32(hnd))
	if hnd <= 0 {
		return ErrSystem
	}
	d.dmaInProgress.Store(true)
	d.dmaBlocking.Store(true)

	// Get the command going.
	var r Response
	for {
		r = d.check(hnd)
		if r != Busy {
			break
		}
		runtime.Gosched()
	}

	if r == Processing {
		// Let the vblank hook keep polling the firmware in case an
		// unexpected error terminates the command while we wait for
		// the DMA interrupt.
		d.cmdInProgress.Store(true)
		d.dmaDone.wait()

		// Usually already terminal here, make sure.
		r = Response(d.response.Load())
		for r == Processing || r == Busy {
			r = d.check(hnd)
			runtime.Gosched()
		}
	} else {
		// The command completed or failed before we observed
		// "processing". The transfer state dies here; drop a stray
		// completion signal so it cannot phantom-wake a later wait.
		d.dmaInProgress.Store(false)
		d.dmaBlocking.Store(false)
		d.dmaDone.drain()
	}

	d.hnd.Store(0)

	if r == Completed || r == NoActive {
		return nil
	}
	switch d.status[statusErr1] {
	case statNoDisc:
		return ErrNoDisc
	case statDiscChanged:
		return ErrDiscChanged
	}
	return ErrSystem
}

// vblankPoll advances an in-flight command nobody polls inline. Runs in
// interrupt context on every vertical blank.
func (d *Driver) vblankPoll(_ holly.Event, _ any) {
	if !d.cmdInProgress.Load() {
		return
	}

	r := d.check(Hnd(d.hnd.Load()))
	if r == Processing || r == Busy {
		return
	}
	d.cmdInProgress.Store(false)

	if d.dmaInProgress.Load() {
		d.dmaInProgress.Store(false)
		if d.dmaBlocking.Load() {
			d.dmaBlocking.Store(false)
			d.dmaDone.signal()
		}
	} else {
		d.cmdDone.signal()
	}
}

// dmaIRQ handles the G1 DMA completion events. Runs in interrupt context;
// only flips flags and signals semaphores, decisions happen in the woken
// thread.
//
// The event lines are shared with the ATA device class, so the handler
// always chains to the entry it displaced.
func (d *Driver) dmaIRQ(code holly.Event, _ any) {
	if d.dmaInProgress.Load() {
		d.dmaInProgress.Store(false)

		if d.cmdInProgress.Load() {
			// An executor wait is pending; refresh status inline.
			// There is no thread to wake, its own poll loop will
			// observe completion.
			d.cmdInProgress.Store(false)
			d.check(Hnd(d.hnd.Load()))
		}
		if d.dmaBlocking.Load() {
			d.dmaBlocking.Store(false)
			d.dmaDone.signal()
		} else if t := g1.Ticket(d.dmaOwner.Load()); t != 0 {
			// Hand the still-held bus mutex to the requester
			// instead of unlocking and letting it race.
			if t == g1.IntrContext {
				d.mu.Unlock()
			} else {
				d.mu.Handoff(t)
			}
			d.dmaOwner.Store(0)
		}
		if Mode(d.streamMode.Load()) != ModeNone {
			if cb := d.streamCb.Load(); cb != nil {
				cb.fn(cb.param)
			}
		}
	}

	if d.oldDMAIRQ.Fn != nil {
		d.oldDMAIRQ.Fn(code, d.oldDMAIRQ.Arg)
	}
}

// ReadSectors reads cnt sectors starting at sector into buf using the given
// transfer mode.
//
// DMA modes require 32 byte aligned buffers, PIO modes 2 byte aligned ones;
// violations are rejected before anything is submitted. The data cache is
// invalidated over the destination unless the buffer resides in the uncached
// window, where either no maintenance is needed or another DMA owns the
// buffer and its caller manages the cache.
func (d *Driver) ReadSectors(buf []byte, sector, cnt int, mode Mode) error {
	params := &ReadParams{
		Sector: int32(sector),
		Count:  int32(cnt),
		Buffer: buf,
	}
	addr := sh4.AddressSlice(buf)

	if mode == ModeDMA || mode == ModeDMAIRQ {
		if addr&(dmaAlign-1) != 0 {
			debug.Logf("gdrom: unaligned memory for DMA (32 byte)")
			return ErrSystem
		}
		if !sh4.Uncached(addr) {
			sh4.InvalidateRange(addr, cnt*d.sectorSize)
		}
		if mode == ModeDMAIRQ {
			return d.readDMABlocking(params)
		}
		return d.Exec(CmdDMARead, params)
	}

	if addr&(pioAlign-1) != 0 {
		debug.Logf("gdrom: unaligned memory for PIO (2 byte)")
		return ErrSystem
	}
	if mode == ModePIOIRQ {
		return d.ExecEx(CmdPIORead, params, 0, true)
	}
	return d.Exec(CmdPIORead, params)
}
