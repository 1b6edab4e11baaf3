package debug

import (
	"log"
	"os"
)

var logger = log.New(os.Stderr, "", log.Lmsgprefix)

// Logf reports an unexpected runtime condition, e.g. a device timeout or a
// rejected buffer. Unlike assertions it stays compiled in release builds,
// since it flags faults of the hardware or the caller, not of this module.
func Logf(format string, args ...any) {
	logger.Printf(format, args...)
}

// SetOutput redirects [Logf], e.g. to a serial console.
func SetOutput(w interface{ Write([]byte) (int, error) }) {
	logger.SetOutput(w)
}
