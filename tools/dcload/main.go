package dcload

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/tarm/serial"
)

const usageString = `Serial binary uploader.

Usage: %s [flags] <binary>

`

var (
	flags = flag.NewFlagSet("dcload", flag.ExitOnError)

	dev  = flags.String("dev", "", "serial device, autodetected if empty")
	baud = flags.Int("baud", 115200, "baud rate")
	addr = flags.Uint64("addr", 0x8c010000, "load address")
	exec = flags.Bool("exec", true, "jump to the load address after upload")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "dcload")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}

	port, err := open(*dev, *baud)
	if err != nil {
		log.Fatalln(err)
	}
	defer port.Close()

	bin, err := os.Open(flags.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}
	defer bin.Close()

	conn := NewConn(port)
	n, err := conn.Load(uint32(*addr), bin)
	if err != nil {
		log.Fatalln("upload:", err)
	}
	log.Printf("uploaded %d bytes to %#08x", n, *addr)

	if *exec {
		if err := conn.Exec(uint32(*addr)); err != nil {
			log.Fatalln("exec:", err)
		}
	}
}

// open tries the given device, or a list of likely candidates if none was
// specified.
func open(dev string, baud int) (io.ReadWriteCloser, error) {
	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3")
		case "linux":
			devices = append(devices, "/dev/ttyUSB0", "/dev/ttyUSB1")
		case "darwin":
			devices = append(devices, "/dev/cu.usbserial")
		}
	}

	var firstErr error
	for _, d := range devices {
		s, err := serial.OpenPort(&serial.Config{Name: d, Baud: baud})
		if err == nil {
			return s, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no serial device found")
	}
	return nil, firstErr
}
