// Package gdrom provides access to the GD-ROM drive.
//
// The drive is operated through the boot firmware's command dispatcher, see
// [Syscalls]. The driver layers three access paths on top of it: synchronous
// command execution with optional timeout, interrupt driven execution where
// the caller sleeps until a vertical blank poll observes completion, and a
// streaming session that issues many PIO or DMA transfer requests against a
// single long-lived command.
//
// All paths serialize on the G1 bus mutex shared with the ATA device class.
// At most one command handle is live at any time; starting a synchronous
// command while a stream is active stops the stream first.
package gdrom

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/clktmr/dc/debug"
	"github.com/clktmr/dc/holly"
	"github.com/clktmr/dc/holly/g1"
)

// Result codes of the command API. Transient busy/processing states are
// never surfaced as errors, they are poll-loop continuation conditions.
var (
	// ErrSystem covers transport failures and unrecoverable firmware
	// codes, including buffers rejected before submission.
	ErrSystem = errors.New("gdrom: system failure")
	// ErrNoActiveCmd is benign, e.g. a progress query with nothing
	// running.
	ErrNoActiveCmd = errors.New("gdrom: no active command")
	ErrNoDisc      = errors.New("gdrom: no disc in drive")
	// ErrDiscChanged is recoverable by the caller via [Driver.Reinit].
	ErrDiscChanged = errors.New("gdrom: disc changed")
	ErrTimeout     = errors.New("gdrom: timeout exceeded")
	// ErrBusy is returned by the interrupt-safe status query when the bus
	// is already held.
	ErrBusy = errors.New("gdrom: bus busy")
)

// Mode selects how sector data is moved from the drive.
type Mode int32

const (
	ModeNone   Mode = iota - 1
	ModePIO         // CPU driven, poll for completion
	ModePIOIRQ      // CPU driven, sleep until vblank poll observes completion
	ModeDMA         // DMA, poll for completion
	ModeDMAIRQ      // DMA, sleep until the G1 DMA interrupt fires
)

// DefaultSectorSize is the data area size negotiated by [Driver.Init].
const DefaultSectorSize = 2048

type callback struct {
	fn    StreamCallback
	param any
}

// Driver drives the GD-ROM through the firmware dispatcher.
//
// The interrupt side (vblank hook, G1 DMA handler) mutates the in-progress
// flags without taking the bus mutex. It is the designated producer for the
// completion semaphores thread context consumes and never blocks.
type Driver struct {
	sys Syscalls
	mu  *g1.Mutex

	hnd      atomic.Int32 // live command handle, 0 if none
	response atomic.Int32 // Response of the last status check
	status   Status       // refreshed on every status check

	cmdInProgress atomic.Bool // a thread sleeps until the vblank poll completes the command
	cmdDone       sema

	dmaInProgress atomic.Bool
	dmaBlocking   atomic.Bool
	dmaOwner      atomic.Int32 // g1.Ticket of a non-blocking requester
	handoff       atomic.Int32 // pending handoff ticket, consumed by lockBus
	dmaDone       sema

	streamMode atomic.Int32 // Mode
	streamCb   atomic.Pointer[callback]

	oldDMAIRQ  holly.HandlerEntry
	vblankID   int
	inited     bool
	sectorSize int
}

// New returns a driver using the given firmware dispatcher, serialized on
// mu. Pass the same mutex to every driver sharing the G1 bus.
func New(sys Syscalls, mu *g1.Mutex) *Driver {
	d := &Driver{
		sys:        sys,
		mu:         mu,
		cmdDone:    make(sema, 1),
		dmaDone:    make(sema, 1),
		sectorSize: DefaultSectorSize,
	}
	d.streamMode.Store(int32(ModeNone))
	return d
}

// lockBus acquires the bus mutex. If a completed non-blocking transfer
// handed the bus to us, it is reclaimed through the pending ticket.
func (d *Driver) lockBus() {
	d.mu.LockTicket(g1.Ticket(d.handoff.Swap(0)))
}

// check ticks the executor and refreshes response and status.
func (d *Driver) check(hnd Hnd) Response {
	d.sys.ExecServer()
	r := d.sys.CheckCommand(hnd, &d.status)
	d.response.Store(int32(r))
	return r
}

// submit sends a command descriptor, retrying a bounded number of times with
// the executor ticked between attempts. Returns zero if the dispatcher never
// yielded a handle.
func (d *Driver) submit(cmd Cmd, params any) Hnd {
	debug.Assert(cmd > 0 && cmd < cmdMax, "gdrom: unknown command code")

	var hnd Hnd
	for range 10 {
		hnd = d.sys.SendCommand(cmd, params)
		if hnd != 0 {
			break
		}
		d.sys.ExecServer()
		runtime.Gosched()
	}
	return hnd
}

// poll drives the executor until hnd leaves the processing and busy states.
// A nonzero timeout is wall-clock, checked once per iteration; exceeding it
// aborts the command with a short grace period and returns ErrTimeout.
func (d *Driver) poll(hnd Hnd, timeout time.Duration) error {
	var begin time.Time
	if timeout != 0 {
		begin = time.Now()
	}
	for {
		r := d.check(hnd)
		if r != Processing && r != Busy {
			return nil
		}
		if timeout != 0 && time.Since(begin) >= timeout {
			d.abortLocked(hnd, 500*time.Millisecond)
			debug.Logf("gdrom: command timeout exceeded")
			return ErrTimeout
		}
		runtime.Gosched()
	}
}

// Exec submits cmd and blocks until it completes.
func (d *Driver) Exec(cmd Cmd, params any) error {
	return d.ExecEx(cmd, params, 0, false)
}

// ExecTimed is [Driver.Exec] with a timeout, after which the command is
// aborted.
func (d *Driver) ExecTimed(cmd Cmd, params any, timeout time.Duration) error {
	return d.ExecEx(cmd, params, timeout, false)
}

// ExecEx submits cmd and blocks until it completes. With useIRQ the calling
// goroutine sleeps and the vertical blank hook advances the command;
// otherwise the call polls inline, yielding between iterations.
//
// Streaming commands leave their handle live across the call boundary, all
// others clear it on every return path.
func (d *Driver) ExecEx(cmd Cmd, params any, timeout time.Duration, useIRQ bool) error {
	if Mode(d.streamMode.Load()) != ModeNone && Hnd(d.hnd.Load()) > 0 {
		// Single outstanding command: force the stream down first.
		d.StreamStop(false)
	}

	d.lockBus()
	defer d.mu.Unlock()

	hnd := d.submit(cmd, params)
	d.hnd.Store(int32(hnd))
	if hnd <= 0 {
		return ErrSystem
	}

	var err error
	if useIRQ {
		if r := d.check(hnd); r == Processing || r == Busy {
			d.cmdInProgress.Store(true)
			d.cmdDone.wait()
		}
	} else {
		err = d.poll(hnd, timeout)
	}

	if Response(d.response.Load()) != Streaming {
		d.hnd.Store(0)
	}

	if err != nil {
		return err
	}
	return d.result()
}

// result maps the final response and status words to the stable error
// contract.
func (d *Driver) result() error {
	switch Response(d.response.Load()) {
	case Completed, Streaming:
		return nil
	case NoActive:
		return ErrNoActiveCmd
	}
	switch d.status[statusErr1] {
	case statNoDisc:
		return ErrNoDisc
	case statDiscChanged:
		return ErrDiscChanged
	}
	return ErrSystem
}

// Abort forcibly terminates the active command. With abortDMA an in-flight
// DMA transfer is torn down as well: a blocking transfer only gets the
// hardware abort issued, its own wait loop observes completion; a
// non-blocking transfer still holds the bus mutex, so the cancelling caller
// takes over ownership before aborting. If the command does not reach a
// terminal state within timeout, the controller is reset and reinitialized
// as a last resort, losing the in-flight command but unsticking the channel.
//
// Always clears the active handle and any live streaming mode on exit.
func (d *Driver) Abort(timeout time.Duration, abortDMA bool) error {
	hnd := Hnd(d.hnd.Load())
	if hnd <= 0 {
		return ErrNoActiveCmd
	}

	if abortDMA && d.dmaInProgress.Load() {
		if d.dmaBlocking.Load() {
			d.sys.AbortCommand(hnd)
			return nil
		}
		// The bus mutex is still held by the non-blocking transfer.
		// Declare ourselves the new owner before the hardware abort,
		// so a racing completion interrupt has nothing to hand off.
		d.dmaInProgress.Store(false)
		d.cmdInProgress.Store(false)
		d.dmaOwner.Store(0)
		d.handoff.Store(0)
	} else {
		d.lockBus()
	}

	err := d.abortLocked(hnd, timeout)
	d.mu.Unlock()
	return err
}

// abortLocked issues the hardware abort and drains to a terminal state,
// escalating to a full controller reset on timeout. Caller holds the bus
// mutex.
func (d *Driver) abortLocked(hnd Hnd, timeout time.Duration) error {
	var err error
	var begin time.Time

	d.sys.AbortCommand(hnd)

	if timeout != 0 {
		begin = time.Now()
	}
	for {
		r := d.check(hnd)
		if r == NoActive || r == Completed {
			break
		}
		if timeout != 0 && time.Since(begin) >= timeout {
			debug.Logf("gdrom: abort timeout exceeded, resetting")
			err = ErrTimeout
			d.sys.Reset()
			d.sys.Init()
			break
		}
		runtime.Gosched()
	}

	d.hnd.Store(0)
	d.streamMode.Store(int32(ModeNone))
	if d.streamCb.Load() != nil {
		d.SetStreamCallback(nil, nil)
	}
	return err
}

// Drive status reported by [Driver.DriveStatus].
const (
	StatusBusy = iota
	StatusPaused
	StatusStandby
	StatusPlaying
	StatusSeeking
	StatusScanning
	StatusOpen
	StatusNoDisc
)

// Disc types reported by [Driver.DriveStatus].
const (
	DiscCDDA    = 0x00
	DiscCDROM   = 0x10
	DiscCDROMXA = 0x20
	DiscCDI     = 0x30
	DiscGDROM   = 0x80
)

// DriveStatus returns the drive status and disc type.
//
// It may be called in interrupt context and therefore only tries the bus
// mutex, failing with ErrBusy instead of deadlocking on something already in
// progress.
func (d *Driver) DriveStatus() (status, discType int, err error) {
	if !d.mu.TryLock() {
		return -1, -1, ErrBusy
	}
	defer d.mu.Unlock()

	var params [2]uint32
	var rv int
	for {
		rv = d.sys.CheckDrive(&params)
		if rv != int(Busy) {
			break
		}
		runtime.Gosched()
	}
	if rv < 0 {
		return -1, -1, ErrSystem
	}
	return int(params[0]), int(params[1]), nil
}

// Sector part selectors for [Driver.ChangeDataType].
const (
	ReadWholeSector = 0x1000
	ReadDataArea    = 0x2000
)

// ChangeDataType negotiates the sector format the drive returns. Passing -1
// selects defaults: whole 2352 byte sectors as-is, or the data area of 2048
// byte sectors with the CD-XA flavor taken from what the drive reports.
//
// The negotiated size is driver state: it scales transfer byte counts for
// cache maintenance in DMA reads.
func (d *Driver) ChangeDataType(sectorPart, cdxa, sectorSize int) error {
	d.lockBus()
	defer d.mu.Unlock()

	var params [4]uint32
	if sectorSize == 2352 {
		if cdxa == -1 {
			cdxa = 0
		}
		if sectorPart == -1 {
			sectorPart = ReadWholeSector
		}
	} else {
		if cdxa == -1 {
			// Not overridden, ask the drive what flavor it thinks
			// we should use.
			var drive [2]uint32
			d.sys.CheckDrive(&drive)
			if drive[1] == 32 {
				cdxa = 2048
			} else {
				cdxa = 1024
			}
		}
		if sectorPart == -1 {
			sectorPart = ReadDataArea
		}
		if sectorSize == -1 {
			sectorSize = 2048
		}
	}

	params[0] = 0 // 0 = set, 1 = get
	params[1] = uint32(sectorPart)
	params[2] = uint32(cdxa)
	params[3] = uint32(sectorSize)

	d.sectorSize = sectorSize
	if rv := d.sys.SectorMode(&params); rv != 0 {
		return fmt.Errorf("%w: sector mode %d", ErrSystem, rv)
	}
	return nil
}

// SectorSize returns the currently negotiated sector size.
func (d *Driver) SectorSize() int { return d.sectorSize }

// SetSectorSize renegotiates only the sector size, leaving the remaining
// format parameters at their defaults.
func (d *Driver) SetSectorSize(size int) error {
	return d.ReinitEx(-1, -1, size)
}

// Reinit reinitializes the drive with default format parameters, e.g. after
// a disc change.
func (d *Driver) Reinit() error {
	return d.ReinitEx(-1, -1, -1)
}

// ReinitEx reinitializes the drive and negotiates the sector format. A
// pending disc change is consumed by retrying the init command.
func (d *Driver) ReinitEx(sectorPart, cdxa, sectorSize int) error {
	var err error
	for {
		err = d.ExecTimed(CmdInit, nil, 10*time.Second)
		if !errors.Is(err, ErrDiscChanged) {
			break
		}
	}
	if errors.Is(err, ErrNoDisc) || errors.Is(err, ErrSystem) || errors.Is(err, ErrTimeout) {
		return err
	}

	return d.ChangeDataType(sectorPart, cdxa, sectorSize)
}
