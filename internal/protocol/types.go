package protocol

// Response codes at the start of an inbound message.
const (
	RCmd  = 0x01
	RInit = 0x80
)

// Second byte of an R_CMD message.
const (
	HeaderSystem = 0x0c
	// SlotIDOffset is added to a slot index in responses.
	SlotIDOffset = 0x08
	// PerfID addresses the performance in version messages.
	PerfID = 0x04
)

// Command bytes of outbound requests.
const (
	CmdRequest  = 0x20
	CmdNoResp   = 0x30
	CmdSlot     = 0x08
	CmdSystem   = 0x0c
	SysVersion  = 0x41
	VersionTag  = 0x40
	VersionCnt  = 0x36
	VersionList = 0x1f
)

// Response and section type bytes.
const (
	TPatchLoadData       = 0x72
	TTextPad             = 0x6f
	TCurrentNote         = 0x69
	TPatchName           = 0x27
	TPatchDescription    = 0x21
	TSelectedParam       = 0x2f
	TOK                  = 0x7f
	TSynthSettings       = 0x03
	TPerformanceName     = 0x29
	TPerformanceSettings = 0x11
	TReserved1E          = 0x1e
	TGlobalKnobs         = 0x5f
	TAssignedVoices      = 0x05
	TExtMasterClock      = 0x5d
	TEntryList           = 0x13
	TVolumeData          = 0x3a
	TLedData             = 0x39
	TSetParam            = 0x40
	TSetMorphRange       = 0x43
)

// Request bytes.
const (
	QVersionCount    = 0x35
	QSynthSettings   = 0x02
	QUnknown1        = 0x81
	QPerfSettings    = 0x10
	QUnknown2        = 0x59
	QMasterClock     = 0x3b
	QGlobalKnobs     = 0x5e
	QPatch           = 0x3c
	QPatchName       = 0x28
	QCurrentNote     = 0x68
	QPatchText       = 0x6e
	QResourcesUsed   = 0x71
	QUnknown6        = 0x70
	QSelectedParam   = 0x2e
	QAssignedVoices  = 0x04
	QListNames       = 0x14
	SStartStopComm   = 0x7d
	SRetrieve        = 0x0a
	FileBodyMarker   = 0x17
	PatchExtraFirst  = 0x2d
	PatchExtraSecond = 0x00
)
