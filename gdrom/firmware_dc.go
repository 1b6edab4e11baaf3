//go:build dreamcast

package gdrom

import (
	"unsafe"

	"github.com/clktmr/dc/sh4"
)

// The boot ROM publishes its entry points in a vector table in system
// memory. All GD-ROM syscalls share the vector at 0x8c0000bc and are
// selected by the values passed in r6 and r7.

// gdcall jumps through the GD-ROM syscall vector. Implemented in assembly.
func gdcall(r4, r5 uintptr, r6, r7 uint32) int32

// pioCallbackTrampoline bridges the firmware's raw function pointer callback
// into pioCallbackGo. Implemented in assembly.
func pioCallbackTrampoline()

// pioCallbackEntry returns the code address of the trampoline. Implemented
// in assembly.
func pioCallbackEntry() uintptr

var fwPIOCallback callback

// Called by the trampoline from the firmware's polling loop.
//
//go:nosplit
func pioCallbackGo() {
	if fwPIOCallback.fn != nil {
		fwPIOCallback.fn(fwPIOCallback.param)
	}
}

// Syscall selectors, passed in r7.
const (
	selSendCommand = iota
	selCheckCommand
	selExecServer
	selInitSystem
	selGetDriveStatus
	selG1DMAEnd
	selReqDMATransfer
	selCheckDMA
	selAbortCommand
	selReset
	selSectorMode
	selSetPIOCallback
	selReqPIOTransfer
	selCheckPIO
)

// Firmware returns the dispatcher backed by the boot ROM's syscall vectors.
func Firmware() Syscalls { return firmware{} }

type firmware struct{}

// Parameter blocks handed to the firmware. Static so no allocation happens
// on syscall paths that may run in interrupt context.
var paramBlock [4]uint32

func (firmware) SendCommand(cmd Cmd, params any) Hnd {
	return Hnd(gdcall(uintptr(cmd), paramsAddr(cmd, params), 0, selSendCommand))
}

func (firmware) ExecServer() {
	gdcall(0, 0, 0, selExecServer)
}

func (firmware) CheckCommand(hnd Hnd, status *Status) Response {
	return Response(gdcall(uintptr(hnd), uintptr(unsafe.Pointer(status)), 0, selCheckCommand))
}

func (firmware) AbortCommand(hnd Hnd) {
	gdcall(uintptr(hnd), 0, 0, selAbortCommand)
}

func (firmware) Reset() {
	gdcall(0, 0, 0, selReset)
}

func (firmware) Init() {
	gdcall(0, 0, 0, selInitSystem)
}

func (firmware) SectorMode(params *[4]uint32) int {
	return int(gdcall(uintptr(unsafe.Pointer(params)), 0, 0, selSectorMode))
}

func (firmware) CheckDrive(params *[2]uint32) int {
	return int(gdcall(uintptr(unsafe.Pointer(params)), 0, 0, selGetDriveStatus))
}

func (firmware) DMATransfer(hnd Hnd, params *TransferParams) int {
	paramBlock[0] = uint32(sh4.PhysicalAddressSlice(params.Buffer))
	paramBlock[1] = uint32(len(params.Buffer))
	return int(gdcall(uintptr(hnd), uintptr(unsafe.Pointer(&paramBlock)), 0, selReqDMATransfer))
}

func (firmware) DMACheck(hnd Hnd, remaining *int) int {
	var size uint32
	rv := gdcall(uintptr(hnd), uintptr(unsafe.Pointer(&size)), 0, selCheckDMA)
	*remaining = int(size)
	return int(rv)
}

func (firmware) PIOTransfer(hnd Hnd, params *TransferParams) int {
	paramBlock[0] = uint32(sh4.AddressSlice(params.Buffer))
	paramBlock[1] = uint32(len(params.Buffer))
	return int(gdcall(uintptr(hnd), uintptr(unsafe.Pointer(&paramBlock)), 0, selReqPIOTransfer))
}

func (firmware) PIOCheck(hnd Hnd, remaining *int) int {
	var size uint32
	rv := gdcall(uintptr(hnd), uintptr(unsafe.Pointer(&size)), 0, selCheckPIO)
	*remaining = int(size)
	return int(rv)
}

func (firmware) SetPIOCallback(cb StreamCallback, param any) {
	fwPIOCallback = callback{cb, param}
	if cb == nil {
		gdcall(0, 0, 0, selSetPIOCallback)
		return
	}
	gdcall(pioCallbackEntry(), 0, 0, selSetPIOCallback)
}

// paramsAddr marshals a command's typed parameters into the static block
// and returns its address. DMA destinations are passed as physical
// addresses, PIO destinations as virtual ones.
func paramsAddr(cmd Cmd, params any) uintptr {
	switch p := params.(type) {
	case nil:
		return 0
	case *ReadParams:
		paramBlock[0] = uint32(p.Sector)
		paramBlock[1] = uint32(p.Count)
		if cmd == CmdDMARead {
			paramBlock[2] = uint32(sh4.PhysicalAddressSlice(p.Buffer))
		} else {
			paramBlock[2] = uint32(sh4.AddressSlice(p.Buffer))
		}
		paramBlock[3] = uint32(p.Test)
	case *StreamParams:
		paramBlock[0] = uint32(p.Sector)
		paramBlock[1] = uint32(p.Count)
	case *TOCParams:
		paramBlock[0] = uint32(p.Session)
		paramBlock[1] = uint32(uintptr(unsafe.Pointer(p.Buffer)))
	case *SubcodeParams:
		paramBlock[0] = uint32(p.Which)
		paramBlock[1] = uint32(len(p.Buffer))
		paramBlock[2] = uint32(sh4.AddressSlice(p.Buffer))
	case *CDDAParams:
		paramBlock[0] = uint32(p.Start)
		paramBlock[1] = uint32(p.End)
		paramBlock[2] = uint32(p.Repeat)
	default:
		panic("gdrom: unknown parameter type")
	}
	return uintptr(unsafe.Pointer(&paramBlock))
}
