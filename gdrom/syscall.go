package gdrom

// The drive is not driven through registers but through the firmware's
// command dispatcher: commands are submitted to a cooperative executor that
// must be ticked forward and polled for completion. Syscalls models that
// dispatcher so the driver's state machine can run against the real firmware
// vectors on hardware and against a scripted fake in tests.

// Cmd enumerates the firmware command codes.
type Cmd int32

const (
	CmdCheckLicense Cmd = 2
	CmdReqSPI       Cmd = 4

	CmdPIORead         Cmd = 16
	CmdDMARead         Cmd = 17
	CmdGetTOC          Cmd = 18
	CmdGetTOC2         Cmd = 19
	CmdPlay            Cmd = 20
	CmdPlay2           Cmd = 21
	CmdPause           Cmd = 22
	CmdRelease         Cmd = 23
	CmdInit            Cmd = 24
	CmdDMAAbort        Cmd = 25
	CmdOpenTray        Cmd = 26
	CmdSeek            Cmd = 27
	CmdDMAReadStream   Cmd = 28
	CmdNop             Cmd = 29
	CmdReqMode         Cmd = 30
	CmdSetMode         Cmd = 31
	CmdScan            Cmd = 32
	CmdStop            Cmd = 33
	CmdGetSubcode      Cmd = 34
	CmdGetSession      Cmd = 35
	CmdReqStat         Cmd = 36
	CmdPIOReadStream   Cmd = 37
	CmdDMAReadStreamEx Cmd = 38
	CmdPIOReadStreamEx Cmd = 39
	CmdGetVersion      Cmd = 40

	cmdMax Cmd = 47
)

// Hnd identifies one outstanding firmware command. Zero or negative means no
// active command; at most one handle is live at a time.
type Hnd int32

// Response is the dispatcher's answer to a status check. Values below zero
// are raw firmware errors.
type Response int32

const (
	NoActive   Response = 0
	Processing Response = 1
	Completed  Response = 2
	Streaming  Response = 3
	Busy       Response = 4
)

// Status holds the four status words refreshed on every poll.
type Status [4]int32

const (
	statusErr1 = iota // first error code, see statNoDisc et al.
	statusErr2
	statusTransferred // bytes transferred so far
	statusATA         // raw ATA status
)

// Error codes reported in Status[statusErr1].
const (
	statNoDisc      = 2
	statDiscChanged = 6
)

// ReadParams parameterize CmdPIORead and CmdDMARead.
type ReadParams struct {
	Sector int32
	Count  int32
	Buffer []byte
	Test   int32 // enables the drive's test mode, normally 0
}

// StreamParams parameterize the stream start commands. The data is fetched
// later in arbitrary chunks via TransferParams.
type StreamParams struct {
	Sector int32
	Count  int32
}

// TransferParams describe one chunk of an active stream.
type TransferParams struct {
	Buffer []byte
}

// TOCParams parameterize CmdGetTOC2.
type TOCParams struct {
	Session int32
	Buffer  *TOC
}

// SubcodeParams parameterize CmdGetSubcode.
type SubcodeParams struct {
	Which  int32
	Buffer []byte
}

// CDDAParams parameterize CmdPlay and CmdPlay2.
type CDDAParams struct {
	Start  int32
	End    int32
	Repeat int32
}

// StreamCallback is invoked when a streaming transfer chunk completes, with
// the opaque param it was registered with. For DMA streams it runs in
// interrupt context.
type StreamCallback func(param any)

// Syscalls is the firmware command dispatcher consumed by [Driver].
//
// Implementations must tolerate being called with a stale handle: the
// firmware keeps answering status checks for a finished command until a new
// one is submitted.
type Syscalls interface {
	// SendCommand submits a command descriptor and returns its handle, or
	// zero if the dispatcher is out of command slots.
	SendCommand(cmd Cmd, params any) Hnd
	// ExecServer ticks the firmware's cooperative executor forward.
	ExecServer()
	// CheckCommand refreshes status and returns the command's response.
	CheckCommand(hnd Hnd, status *Status) Response
	// AbortCommand requests termination of an in-flight command.
	AbortCommand(hnd Hnd)
	// Reset performs a hard reset of the drive controller.
	Reset()
	// Init reinitializes the firmware after a reset.
	Init()
	// SectorMode negotiates the sector format: {get/set, sector part,
	// CD-XA mode, sector size}.
	SectorMode(params *[4]uint32) int
	// CheckDrive queries drive state into {status, disc type}.
	CheckDrive(params *[2]uint32) int
	// DMATransfer starts a DMA fetch of one stream chunk.
	DMATransfer(hnd Hnd, params *TransferParams) int
	// DMACheck stores the remaining byte count for an active DMA stream
	// chunk and returns 0 once the transfer finished, 1 while it is in
	// flight and a negative value on error.
	DMACheck(hnd Hnd, remaining *int) int
	// PIOTransfer starts a PIO fetch of one stream chunk.
	PIOTransfer(hnd Hnd, params *TransferParams) int
	// PIOCheck is the PIO counterpart of DMACheck.
	PIOCheck(hnd Hnd, remaining *int) int
	// SetPIOCallback registers the callback the firmware's own polling
	// loop invokes after each completed PIO chunk.
	SetPIOCallback(cb StreamCallback, param any)
}
