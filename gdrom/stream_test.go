package gdrom

import (
	"errors"
	"testing"

	"github.com/clktmr/dc/holly"
	"github.com/clktmr/dc/sh4"
)

// streaming answers status checks with Streaming until aborted.
var streaming = cmdScript{final: Streaming}

func startStream(t *testing.T, fw *fakeFirmware, mode Mode) *Driver {
	t.Helper()
	fw.scripts = append([]cmdScript{streaming}, fw.scripts...)
	d := newTestDriver(fw)
	if err := d.StreamStart(0, 16, mode); err != nil {
		t.Fatalf("stream start: %v", err)
	}
	if Hnd(d.hnd.Load()) <= 0 {
		t.Fatal("stream did not keep its handle")
	}
	return d
}

func alignedBuf(size int) []byte {
	return sh4.MakePaddedSlice[byte](size)
}

func TestStreamImplicitStop(t *testing.T) {
	fw := &fakeFirmware{}
	d := startStream(t, fw, ModePIO)

	// A synchronous command takes precedence over the session.
	if err := d.Exec(CmdNop, nil); err != nil {
		t.Fatalf("exec during stream: %v", err)
	}
	if fw.aborts != 1 {
		t.Errorf("stream not aborted before new command, aborts=%d", fw.aborts)
	}
	if Mode(d.streamMode.Load()) != ModeNone {
		t.Error("stream mode survived implicit stop")
	}
	if hnd := d.hnd.Load(); hnd != 0 {
		t.Errorf("handle not cleared: %v", hnd)
	}
}

func TestStreamStartFailureResetsMode(t *testing.T) {
	fw := &fakeFirmware{scripts: []cmdScript{
		{final: -1, status: Status{statNoDisc}},
	}}
	d := newTestDriver(fw)

	if err := d.StreamStart(0, 16, ModeDMA); !errors.Is(err, ErrNoDisc) {
		t.Fatalf("expected ErrNoDisc, got %v", err)
	}
	if Mode(d.streamMode.Load()) != ModeNone {
		t.Error("stream mode set despite failed start")
	}
}

func TestStreamRequestWithoutSession(t *testing.T) {
	d := newTestDriver(&fakeFirmware{})
	if _, err := d.StreamRequest(alignedBuf(32), true); !errors.Is(err, ErrNoActiveCmd) {
		t.Fatalf("expected ErrNoActiveCmd, got %v", err)
	}
}

func TestStreamRequestWhileDMAInFlight(t *testing.T) {
	fw := &fakeFirmware{}
	d := startStream(t, fw, ModeDMA)

	d.dmaInProgress.Store(true)
	if _, err := d.StreamRequest(alignedBuf(32), true); !errors.Is(err, ErrSystem) {
		t.Fatalf("expected ErrSystem, got %v", err)
	}
	d.dmaInProgress.Store(false)
	if fw.dmaStarts != 0 {
		t.Error("transfer started despite in-flight DMA")
	}
}

func TestStreamRequestAlignment(t *testing.T) {
	t.Run("dma", func(t *testing.T) {
		fw := &fakeFirmware{}
		d := startStream(t, fw, ModeDMA)

		if _, err := d.StreamRequest(alignedBuf(64)[1:33], true); !errors.Is(err, ErrSystem) {
			t.Fatalf("expected ErrSystem, got %v", err)
		}
		if fw.dmaStarts != 0 {
			t.Error("unaligned buffer reached the firmware")
		}
	})
	t.Run("pio", func(t *testing.T) {
		fw := &fakeFirmware{}
		d := startStream(t, fw, ModePIO)

		if _, err := d.StreamRequest(alignedBuf(64)[1:33], true); !errors.Is(err, ErrSystem) {
			t.Fatalf("expected ErrSystem, got %v", err)
		}
		if fw.pioStarts != 0 {
			t.Error("unaligned buffer reached the firmware")
		}
	})
}

func TestStreamRequestPIOFinalChunkCallback(t *testing.T) {
	fw := &fakeFirmware{}
	d := startStream(t, fw, ModePIO)

	calls := 0
	d.SetStreamCallback(func(any) { calls++ }, nil)
	if fw.pioCb == nil {
		t.Fatal("callback not registered with the firmware")
	}

	// The firmware reports the transfer done with nothing remaining but
	// does not deliver the callback itself; the driver must.
	if _, err := d.StreamRequest(alignedBuf(32), true); err != nil {
		t.Fatalf("request: %v", err)
	}
	if calls != 1 {
		t.Errorf("callback invoked %d times, want exactly 1", calls)
	}
}

func TestStreamRequestDMAHandoff(t *testing.T) {
	fw := &fakeFirmware{}
	d := startStream(t, fw, ModeDMA)

	calls := 0
	d.SetStreamCallback(func(any) { calls++ }, nil)

	tk, err := d.StreamRequest(alignedBuf(64), false)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if tk <= 0 {
		t.Fatalf("no ticket for non-blocking transfer: %v", tk)
	}
	if d.mu.TryLock() {
		t.Fatal("bus released while transfer in flight")
	}
	if fw.dmaStarts != 1 {
		t.Fatalf("dma starts = %d, want 1", fw.dmaStarts)
	}

	// Completion interrupt: the bus must be handed to the requester's
	// ticket, never released for grabs.
	d.dmaIRQ(holly.EvtGDDMA, nil)
	if d.mu.TryLock() {
		t.Fatal("interrupt released the bus instead of handing it off")
	}
	if !d.mu.HandedOff(tk) {
		t.Error("bus not claimable by the requester's ticket")
	}
	if calls != 1 {
		t.Errorf("completion callback invoked %d times, want 1", calls)
	}

	// The next driver call redeems the ticket implicitly.
	if err := d.StreamStop(false); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !d.mu.TryLock() {
		t.Fatal("bus still held after stream stop")
	}
	d.mu.Unlock()
}

func TestStreamProgressIdle(t *testing.T) {
	d := newTestDriver(&fakeFirmware{})
	if remaining, active := d.StreamProgress(); remaining != 0 || active {
		t.Errorf("got (%d, %t), want (0, false)", remaining, active)
	}
}
