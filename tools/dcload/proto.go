// Package dcload uploads binaries to a Dreamcast over a serial cable.
//
// The console side runs a small loader stub that accepts framed chunks and
// jumps to an entry point on request. Every frame carries a CRC over its
// payload; the loader acknowledges each frame, a negative acknowledge
// triggers a bounded number of retransmits.
package dcload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sigurn/crc16"
)

// Frame commands.
const (
	cmdLoad = 1 // write payload to addr
	cmdExec = 2 // jump to addr, no payload
)

// Acknowledge bytes sent by the loader after each frame.
const (
	ack = 0x06
	nak = 0x15
)

// ChunkSize is the payload carried per frame. Small enough to keep
// retransmits cheap on a 115200 baud line.
const ChunkSize = 4096

const (
	headerSize = 11
	maxRetries = 3
)

var frameCRC = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

var ErrNak = errors.New("dcload: transfer rejected by loader")

// Conn speaks the loader protocol over any reliable byte stream, usually a
// serial port.
type Conn struct {
	rw  io.ReadWriter
	buf [headerSize + ChunkSize]byte
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw}
}

// send transmits one frame and waits for the acknowledge, retransmitting on
// a negative one.
func (c *Conn) send(cmd byte, addr uint32, payload []byte) error {
	b := c.buf[:0]
	b = append(b, cmd)
	b = binary.BigEndian.AppendUint32(b, addr)
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)))
	b = binary.BigEndian.AppendUint16(b, crc16.Checksum(payload, frameCRC))
	b = append(b, payload...)

	for try := 0; ; try++ {
		if _, err := c.rw.Write(b); err != nil {
			return err
		}

		var resp [1]byte
		if _, err := io.ReadFull(c.rw, resp[:]); err != nil {
			return err
		}
		switch resp[0] {
		case ack:
			return nil
		case nak:
			if try == maxRetries {
				return ErrNak
			}
		default:
			return fmt.Errorf("dcload: unexpected response %#02x", resp[0])
		}
	}
}

// Load streams r to the console's memory starting at addr and returns the
// number of bytes sent.
func (c *Conn) Load(addr uint32, r io.Reader) (int, error) {
	var chunk [ChunkSize]byte
	total := 0
	for {
		n, err := io.ReadFull(r, chunk[:])
		if n > 0 {
			if err := c.send(cmdLoad, addr, chunk[:n]); err != nil {
				return total, err
			}
			addr += uint32(n)
			total += n
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Exec makes the loader jump to addr.
func (c *Conn) Exec(addr uint32) error {
	return c.send(cmdExec, addr, nil)
}
