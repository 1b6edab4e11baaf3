package gdrom

import (
	"runtime"
	"time"

	"github.com/clktmr/dc/debug"
	"github.com/clktmr/dc/holly"
	"github.com/clktmr/dc/holly/g1"
	"github.com/clktmr/dc/sh4"
)

// StreamStart begins a persistent read session of cnt sectors starting at
// sector. The session keeps its command handle live; data is fetched with
// [Driver.StreamRequest] until the session is stopped or the requested range
// is exhausted. An already active stream is stopped first, without aborting
// its DMA: correctness matters more than speed here.
func (d *Driver) StreamStart(sector, cnt int, mode Mode) error {
	if Mode(d.streamMode.Load()) != ModeNone {
		d.StreamStop(false)
	}
	d.streamMode.Store(int32(mode))

	params := &StreamParams{Sector: int32(sector), Count: int32(cnt)}
	var err error
	switch mode {
	case ModeDMA:
		err = d.ExecEx(CmdDMAReadStream, params, 0, false)
	case ModeDMAIRQ:
		err = d.ExecEx(CmdDMAReadStream, params, 0, true)
	case ModePIOIRQ:
		err = d.ExecEx(CmdPIOReadStream, params, 0, true)
	default:
		err = d.ExecEx(CmdPIOReadStream, params, 0, false)
	}

	if err != nil {
		d.streamMode.Store(int32(ModeNone))
	}
	return err
}

// StreamStop ends the active streaming session. Stopping with nothing active
// is a no-op. With abortDMA an in-flight DMA transfer is aborted, otherwise
// the session is drained to a terminal state first.
func (d *Driver) StreamStop(abortDMA bool) error {
	hnd := Hnd(d.hnd.Load())
	if hnd <= 0 {
		return nil
	}
	if abortDMA && d.dmaInProgress.Load() {
		return d.Abort(time.Second, true)
	}

	d.lockBus()
	var err error
	for {
		r := d.check(hnd)
		if r < 0 {
			err = ErrSystem
			break
		} else if r == Completed || r == NoActive {
			break
		} else if r == Streaming {
			// Still streaming after a stop request is unreachable
			// without aborting the command.
			d.mu.Unlock()
			return d.Abort(time.Second, false)
		}
		runtime.Gosched()
	}

	d.hnd.Store(0)
	d.streamMode.Store(int32(ModeNone))
	d.mu.Unlock()

	if d.streamCb.Load() != nil {
		d.SetStreamCallback(nil, nil)
	}
	return err
}

// StreamRequest fetches len(buf) bytes of the active session into buf. The
// single outstanding transfer invariant extends to streaming: a request
// while any DMA is in flight is rejected. Alignment follows the session
// mode, 32 bytes for DMA and 2 bytes for PIO.
//
// For DMA modes with block=false the call returns as soon as the transfer is
// started, with the bus mutex still held by the transfer. On completion the
// interrupt handler hands the mutex directly to the returned ticket, which
// the issuing goroutine redeems implicitly with its next driver call (or
// explicitly via the mutex). For all other calls the returned ticket is
// zero.
func (d *Driver) StreamRequest(buf []byte, block bool) (g1.Ticket, error) {
	hnd := Hnd(d.hnd.Load())
	if hnd <= 0 {
		return 0, ErrNoActiveCmd
	}
	if d.dmaInProgress.Load() {
		debug.Logf("gdrom: previous DMA request is in progress")
		return 0, ErrSystem
	}

	mode := Mode(d.streamMode.Load())
	addr := sh4.AddressSlice(buf)
	dma := mode == ModeDMA || mode == ModeDMAIRQ

	if dma {
		if addr&(dmaAlign-1) != 0 {
			debug.Logf("gdrom: unaligned memory for DMA (32 byte)")
			return 0, ErrSystem
		}
		if !sh4.Uncached(addr) {
			sh4.InvalidateRange(addr, len(buf))
		}
	} else if addr&(pioAlign-1) != 0 {
		debug.Logf("gdrom: unaligned memory for PIO (2 byte)")
		return 0, ErrSystem
	}

	params := &TransferParams{Buffer: buf}
	d.lockBus()

	if dma {
		return d.streamRequestDMA(hnd, params, mode, block)
	}
	err := d.streamRequestPIO(hnd, params)
	d.mu.Unlock()
	return 0, err
}

func (d *Driver) streamRequestDMA(hnd Hnd, params *TransferParams, mode Mode, block bool) (g1.Ticket, error) {
	d.dmaInProgress.Store(true)
	d.dmaBlocking.Store(block)

	var t g1.Ticket
	if !block {
		t = d.mu.NewTicket()
		if holly.InHandler() {
			t = g1.IntrContext
		} else {
			d.handoff.Store(int32(t))
		}
		d.dmaOwner.Store(int32(t))
	}

	if rs := d.sys.DMATransfer(hnd, params); rs < 0 {
		d.dmaInProgress.Store(false)
		d.dmaBlocking.Store(false)
		d.dmaOwner.Store(0)
		d.handoff.Store(0)
		d.mu.Unlock()
		return 0, ErrSystem
	}
	if !block {
		// Completion is left to the interrupt handler, which will
		// hand the still-held mutex to t.
		return t, nil
	}
	if mode == ModeDMAIRQ {
		d.dmaDone.wait()
	}

	var err error
	for {
		r := d.check(hnd)
		if r < 0 {
			err = ErrSystem
			break
		} else if r == Completed || r == NoActive {
			d.hnd.Store(0)
			break
		}
		var remaining int
		if d.sys.DMACheck(hnd, &remaining) == 0 {
			break
		}
		runtime.Gosched()
	}
	d.mu.Unlock()
	return 0, err
}

func (d *Driver) streamRequestPIO(hnd Hnd, params *TransferParams) error {
	if rs := d.sys.PIOTransfer(hnd, params); rs < 0 {
		return ErrSystem
	}

	for {
		r := d.check(hnd)
		if r < 0 {
			return ErrSystem
		} else if r == Completed || r == NoActive {
			d.hnd.Store(0)
			return nil
		}
		var remaining int
		if d.sys.PIOCheck(hnd, &remaining) == 0 {
			// The firmware's polling loop doesn't invoke the
			// registered callback on the last chunk. Deliver it
			// ourselves, downstream callers depend on it.
			if remaining == 0 {
				if cb := d.streamCb.Load(); cb != nil {
					cb.fn(cb.param)
				}
			}
			return nil
		}
		runtime.Gosched()
	}
}

// StreamProgress peeks at the remaining byte count of the current transfer
// without blocking. With no command active it returns zero values.
func (d *Driver) StreamProgress() (remaining int, active bool) {
	hnd := Hnd(d.hnd.Load())
	if hnd <= 0 {
		return 0, false
	}

	var rv int
	mode := Mode(d.streamMode.Load())
	if mode == ModeDMA || mode == ModeDMAIRQ {
		rv = d.sys.DMACheck(hnd, &remaining)
	} else {
		rv = d.sys.PIOCheck(hnd, &remaining)
	}
	return remaining, rv != 0
}

// SetStreamCallback registers cb to be invoked with param after every
// completed transfer of the session. For PIO sessions the callback is
// additionally registered with the firmware's transfer layer, which invokes
// it from its polling loop; DMA sessions invoke it directly from the
// completion interrupt. A nil cb unregisters.
func (d *Driver) SetStreamCallback(cb StreamCallback, param any) {
	if cb == nil {
		d.streamCb.Store(nil)
	} else {
		d.streamCb.Store(&callback{cb, param})
	}

	mode := Mode(d.streamMode.Load())
	if mode == ModePIO || mode == ModePIOIRQ {
		d.sys.SetPIOCallback(cb, param)
	}
}
