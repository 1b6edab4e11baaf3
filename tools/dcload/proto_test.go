package dcload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/sigurn/crc16"
)

// duplex joins two pipes into one bidirectional stream.
type duplex struct {
	io.Reader
	io.Writer
}

// loaderStub mimics the console side: it verifies each frame's CRC and
// stores the payloads. Frames listed in dropFirst get a single NAK before
// being accepted.
type loaderStub struct {
	t         *testing.T
	rw        io.ReadWriter
	mem       map[uint32][]byte
	execAddr  uint32
	dropFirst int // NAK the first n received frames
	frames    int
}

func (l *loaderStub) serve() {
	for {
		var header [headerSize]byte
		if _, err := io.ReadFull(l.rw, header[:]); err != nil {
			return
		}
		cmd := header[0]
		addr := binary.BigEndian.Uint32(header[1:5])
		size := binary.BigEndian.Uint32(header[5:9])
		sum := binary.BigEndian.Uint16(header[9:11])

		payload := make([]byte, size)
		if _, err := io.ReadFull(l.rw, payload); err != nil {
			return
		}

		l.frames++
		if l.frames <= l.dropFirst {
			l.rw.Write([]byte{nak})
			continue
		}
		if crc16.Checksum(payload, frameCRC) != sum {
			l.t.Error("crc mismatch in frame")
			l.rw.Write([]byte{nak})
			continue
		}

		switch cmd {
		case cmdLoad:
			l.mem[addr] = payload
		case cmdExec:
			l.execAddr = addr
		}
		l.rw.Write([]byte{ack})
	}
}

func newLoaderPair(t *testing.T, dropFirst int) (*Conn, *loaderStub) {
	hostR, consoleW := io.Pipe()
	consoleR, hostW := io.Pipe()
	t.Cleanup(func() { consoleW.Close(); hostW.Close() })

	stub := &loaderStub{
		t:         t,
		rw:        duplex{consoleR, consoleW},
		mem:       make(map[uint32][]byte),
		dropFirst: dropFirst,
	}
	go stub.serve()
	return NewConn(duplex{hostR, hostW}), stub
}

func TestLoad(t *testing.T) {
	conn, stub := newLoaderPair(t, 0)

	payload := bytes.Repeat([]byte{0xa5, 0x5a}, 3*ChunkSize/4)
	n, err := conn.Load(0x8c010000, bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Fatalf("sent %d bytes, want %d", n, len(payload))
	}

	got := append(stub.mem[0x8c010000], stub.mem[0x8c010000+ChunkSize]...)
	if !bytes.Equal(got, payload) {
		t.Error("payload corrupted in transfer")
	}
}

func TestLoadRetransmit(t *testing.T) {
	conn, stub := newLoaderPair(t, 2)

	payload := []byte("retransmit me")
	if _, err := conn.Load(0, bytes.NewReader(payload)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stub.mem[0], payload) {
		t.Error("payload missing after retransmits")
	}
	if stub.frames != 3 {
		t.Errorf("%d frames on the wire, want 3", stub.frames)
	}
}

func TestLoadGivesUp(t *testing.T) {
	conn, _ := newLoaderPair(t, maxRetries+2)

	_, err := conn.Load(0, bytes.NewReader([]byte("doomed")))
	if !errors.Is(err, ErrNak) {
		t.Fatalf("expected ErrNak, got %v", err)
	}
}

func TestExec(t *testing.T) {
	conn, stub := newLoaderPair(t, 0)

	if err := conn.Exec(0x8c010000); err != nil {
		t.Fatal(err)
	}
	if stub.execAddr != 0x8c010000 {
		t.Errorf("exec at %#x, want 0x8c010000", stub.execAddr)
	}
}
