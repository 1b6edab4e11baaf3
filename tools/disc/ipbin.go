package disc

import (
	"fmt"

	"github.com/sigurn/crc16"
)

// Meta is the bootstrap metadata the BIOS displays and validates.
type Meta struct {
	Title   string // up to 128 characters
	Product string // product number, e.g. T00000
	Version string // defaults to V1.000
	Date    string // release date as YYYYMMDD
	Maker   string // software maker name
	Boot    string // boot binary filename in the image root
}

// Field offsets in the bootstrap header.
const (
	ipHardwareID  = 0x00 // 16 bytes
	ipMakerID     = 0x10 // 16 bytes
	ipDeviceInfo  = 0x20 // 16 bytes, starts with the CRC over 0x40..0x4f
	ipAreaSymbols = 0x30 // 8 bytes
	ipPeripherals = 0x38 // 8 bytes, hex encoded capability bits
	ipProductNo   = 0x40 // 10 bytes
	ipVersion     = 0x4a // 6 bytes
	ipReleaseDate = 0x50 // 16 bytes
	ipBootFile    = 0x60 // 16 bytes
	ipMakerName   = 0x70 // 16 bytes
	ipTitle       = 0x80 // 128 bytes
)

// The header CRC uses CCITT-FALSE over the product number and version
// fields.
var ipCRCTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// MakeIPBIN generates a header-only bootstrap. The code regions stay zero;
// emulators with a high-level BIOS boot it, real hardware needs a full
// bootstrap passed via patchIPBIN.
func MakeIPBIN(meta Meta) []byte {
	b := make([]byte, systemAreaSize)
	for i := range b[:0x100] {
		b[i] = ' '
	}
	patchIPBIN(b, meta)
	return b
}

// patchIPBIN fills the metadata fields of an existing bootstrap and updates
// its header CRC.
func patchIPBIN(b []byte, meta Meta) {
	if meta.Version == "" {
		meta.Version = "V1.000"
	}
	if meta.Date == "" {
		meta.Date = "20000627"
	}
	if meta.Maker == "" {
		meta.Maker = "GO"
	}

	field(b, ipHardwareID, 16, "SEGA SEGAKATANA")
	field(b, ipMakerID, 16, "SEGA ENTERPRISES")
	field(b, ipAreaSymbols, 8, "JUE")
	field(b, ipPeripherals, 8, "E000F10")
	field(b, ipProductNo, 10, meta.Product)
	field(b, ipVersion, 6, meta.Version)
	field(b, ipReleaseDate, 16, meta.Date)
	field(b, ipBootFile, 16, meta.Boot)
	field(b, ipMakerName, 16, meta.Maker)
	field(b, ipTitle, 128, meta.Title)

	crc := crc16.Checksum(b[ipProductNo:ipProductNo+16], ipCRCTable)
	field(b, ipDeviceInfo, 16, fmt.Sprintf("%04X GD-ROM1/1", crc))
}

// field writes s space padded into a fixed size header field.
func field(b []byte, off, size int, s string) {
	if len(s) > size {
		s = s[:size]
	}
	copy(b[off:off+size], s)
	for i := off + len(s); i < off+size; i++ {
		b[i] = ' '
	}
}
