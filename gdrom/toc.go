package gdrom

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sigurn/crc16"
)

// TOC is a session's table of contents as returned by the drive: 99 track
// entries plus first track, last track and lead-out descriptors, each
// packing control and ADR nibbles over a 24 bit value.
type TOC struct {
	Entry   [99]uint32
	First   uint32
	Last    uint32
	Leadout uint32
}

// TrackLBA extracts the absolute sector from a TOC descriptor.
func TrackLBA(entry uint32) uint32 { return entry & 0x00ffffff }

// TrackNumber extracts the track number from the First and Last descriptors.
func TrackNumber(entry uint32) int { return int(entry>>16) & 0xff }

// TrackCtrl extracts the control nibble; 4 marks a data track.
func TrackCtrl(entry uint32) int { return int(entry>>28) & 0x0f }

// TrackADR extracts the ADR nibble.
func TrackADR(entry uint32) int { return int(entry>>24) & 0x0f }

// LocateDataTrack returns the absolute sector of the last data track, or
// zero if the TOC holds none. Use after [Driver.ReadTOC].
func (t *TOC) LocateDataTrack() uint32 {
	first := TrackNumber(t.First)
	last := TrackNumber(t.Last)

	if first < 1 || last > 99 || first > last {
		return 0
	}
	for i := last; i >= first; i-- {
		if TrackCtrl(t.Entry[i-1]) == 4 {
			return TrackLBA(t.Entry[i-1])
		}
	}
	return 0
}

// ReadTOC reads the table of contents of a session into toc.
func (d *Driver) ReadTOC(toc *TOC, session int) error {
	return d.Exec(CmdGetTOC2, &TOCParams{Session: int32(session), Buffer: toc})
}

// Subcode channel selectors for [Driver.GetSubcode].
const (
	SubcodeAll = iota
	SubcodeQ
)

// GetSubcode reads a piece of or all of the subcode of the last sector read.
// To get the subcode of every sector, read no more than one at a time.
func (d *Driver) GetSubcode(which int, buf []byte) error {
	return d.Exec(CmdGetSubcode, &SubcodeParams{Which: int32(which), Buffer: buf})
}

// MSF is a minute/second/frame position, 75 frames per second.
type MSF struct {
	Min, Sec, Frame uint8
}

// SubQ is a decoded Q subchannel packet.
type SubQ struct {
	Ctrl  int
	ADR   int
	Track uint8
	Index uint8
	Rel   MSF // position relative to the track start
	Abs   MSF // absolute position
}

var ErrSubcodeCRC = errors.New("gdrom: subcode crc mismatch")

// The Q subchannel is protected by CRC-16/GSM: poly 0x1021, zero init,
// inverted remainder.
var subqTable = crc16.MakeTable(crc16.Params{
	Poly: 0x1021, Init: 0x0000, RefIn: false, RefOut: false,
	XorOut: 0xffff, Check: 0xce3c, Name: "CRC-16/GSM",
})

// ParseSubQ decodes a raw 12 byte Q subchannel packet, verifying its
// trailing CRC.
func ParseSubQ(raw []byte) (SubQ, error) {
	if len(raw) < 12 {
		return SubQ{}, fmt.Errorf("%w: short subcode packet (%d bytes)", ErrSystem, len(raw))
	}
	if crc16.Checksum(raw[:10], subqTable) != binary.BigEndian.Uint16(raw[10:12]) {
		return SubQ{}, ErrSubcodeCRC
	}
	return SubQ{
		Ctrl:  int(raw[0] >> 4),
		ADR:   int(raw[0] & 0x0f),
		Track: raw[1],
		Index: raw[2],
		Rel:   MSF{raw[3], raw[4], raw[5]},
		Abs:   MSF{raw[7], raw[8], raw[9]},
	}, nil
}

// CDDA playback addressing modes.
const (
	CDDATracks = iota
	CDDASectors
)

// CDDAPlay plays audio from start to end, given as track numbers or absolute
// sectors depending on mode. repeat is capped at 15, which means infinite.
func (d *Driver) CDDAPlay(start, end, repeat int, mode int) error {
	if repeat > 15 {
		repeat = 15
	}
	params := &CDDAParams{
		Start:  int32(start),
		End:    int32(end),
		Repeat: int32(repeat),
	}

	switch mode {
	case CDDATracks:
		return d.Exec(CmdPlay, params)
	case CDDASectors:
		return d.Exec(CmdPlay2, params)
	}
	return nil
}

// CDDAPause pauses audio playback.
func (d *Driver) CDDAPause() error {
	return d.Exec(CmdPause, nil)
}

// CDDAResume resumes paused audio playback.
func (d *Driver) CDDAResume() error {
	return d.Exec(CmdRelease, nil)
}

// SpinDown stops the disc.
func (d *Driver) SpinDown() error {
	return d.Exec(CmdStop, nil)
}

// OpenTray ejects the disc.
func (d *Driver) OpenTray() error {
	return d.Exec(CmdOpenTray, nil)
}
