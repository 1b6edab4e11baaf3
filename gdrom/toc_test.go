package gdrom

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/sigurn/crc16"
)

// entry builds a TOC descriptor from control nibble, ADR nibble and LBA.
func entry(ctrl, adr int, lba uint32) uint32 {
	return uint32(ctrl)<<28 | uint32(adr)<<24 | lba&0x00ffffff
}

func TestTOCAccessors(t *testing.T) {
	e := entry(4, 1, 45150)
	if TrackCtrl(e) != 4 || TrackADR(e) != 1 || TrackLBA(e) != 45150 {
		t.Errorf("ctrl=%d adr=%d lba=%d", TrackCtrl(e), TrackADR(e), TrackLBA(e))
	}
	if got := TrackNumber(0x00030000); got != 3 {
		t.Errorf("track number = %d, want 3", got)
	}
}

func TestLocateDataTrack(t *testing.T) {
	var toc TOC
	toc.First = 1 << 16
	toc.Last = 3 << 16
	toc.Entry[0] = entry(0, 1, 150)   // audio
	toc.Entry[1] = entry(4, 1, 45150) // data
	toc.Entry[2] = entry(0, 1, 90000) // audio

	if got := toc.LocateDataTrack(); got != 45150 {
		t.Errorf("data track at %d, want 45150", got)
	}

	// High density area of a GD-ROM: the data track is the last one.
	toc.Entry[2] = entry(4, 1, 90000)
	if got := toc.LocateDataTrack(); got != 90000 {
		t.Errorf("data track at %d, want 90000", got)
	}

	var empty TOC
	if got := empty.LocateDataTrack(); got != 0 {
		t.Errorf("empty TOC located track at %d", got)
	}
}

func TestSubQTable(t *testing.T) {
	// Validate the table against the parameter set's check value.
	if got := crc16.Checksum([]byte("123456789"), subqTable); got != 0xce3c {
		t.Fatalf("check = %#04x, want 0xce3c", got)
	}
}

func TestParseSubQ(t *testing.T) {
	raw := []byte{
		0x41,       // ctrl 4 (data), adr 1 (position)
		0x01, 0x01, // track 1, index 1
		0x00, 0x02, 0x10, // relative 0:02.16
		0x00,             // zero
		0x00, 0x04, 0x10, // absolute 0:04.16
		0x00, 0x00, // crc, filled below
	}
	binary.BigEndian.PutUint16(raw[10:12], crc16.Checksum(raw[:10], subqTable))

	q, err := ParseSubQ(raw)
	if err != nil {
		t.Fatal(err)
	}
	if q.Ctrl != 4 || q.ADR != 1 || q.Track != 1 || q.Index != 1 {
		t.Errorf("decoded %+v", q)
	}
	if q.Rel != (MSF{0, 2, 16}) || q.Abs != (MSF{0, 4, 16}) {
		t.Errorf("positions rel=%v abs=%v", q.Rel, q.Abs)
	}

	raw[1] ^= 0x80
	if _, err := ParseSubQ(raw); !errors.Is(err, ErrSubcodeCRC) {
		t.Errorf("corrupted packet parsed, err=%v", err)
	}

	if _, err := ParseSubQ(raw[:8]); !errors.Is(err, ErrSystem) {
		t.Errorf("short packet parsed, err=%v", err)
	}
}

func TestCDDAPlayParams(t *testing.T) {
	fw := &fakeFirmware{}
	d := newTestDriver(fw)

	if err := d.CDDAPlay(1, 2, 100, CDDATracks); err != nil {
		t.Fatal(err)
	}
	if len(fw.sends) != 1 || fw.sends[0] != CmdPlay {
		t.Errorf("sends = %v, want [CmdPlay]", fw.sends)
	}
	if err := d.CDDAPlay(150, 45000, 0, CDDASectors); err != nil {
		t.Fatal(err)
	}
	if fw.sends[1] != CmdPlay2 {
		t.Errorf("sector playback used %v, want CmdPlay2", fw.sends[1])
	}
}
