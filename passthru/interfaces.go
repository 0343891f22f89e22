package passthru

// MsgFilter is an opaque handle to a filter installed with
// Channel.StartMsgFilter; pass it back to StopMsgFilter to release it.
type MsgFilter interface{}

// PeriodicMsg is an opaque handle to a periodic message started with
// Channel.StartPeriodicMsg.
type PeriodicMsg interface{}

// Library is the top-level Pass-Thru entry point: it opens Devices and
// reports the last error recorded by any call made through it.
type Library interface {
	Open(name string) (Device, error)
	Close(d Device) error
	GetLastError() string
}

// Device represents one opened vehicle interface. Connect opens a
// Channel bound to a protocol; Disconnect releases it.
type Device interface {
	Connect(protocolID ProtocolID, flags uint32, baudRate uint32) (Channel, error)
	Disconnect(ch Channel) error
	SetProgrammingVoltage(pin uint32, voltage uint32) error
	ReadVersion() (firmwareVersion, dllVersion, apiVersion string, err error)
	Ioctl(id IoctlID, input, output []byte) error
}

// Channel is one connected protocol session: the unit that reads and
// writes Messages, installs filters, and is configured.
type Channel interface {
	ReadMsgs(msgs []Message, timeoutMs uint32) (numMsgs int, err error)
	WriteMsgs(msgs []Message, timeoutMs uint32) (numMsgs int, err error)
	StartMsgFilter(filterType FilterType, maskMsg, patternMsg, flowControlMsg *Message) (MsgFilter, error)
	StopMsgFilter(f MsgFilter) error
	StartPeriodicMsg(msg *Message, intervalMs uint32) (PeriodicMsg, error)
	StopPeriodicMsg(p PeriodicMsg) error
	Ioctl(id IoctlID, input, output []byte) error
	GetConfig(params []SConfig) error
	SetConfig(params []SConfig) error
	ClearTxBuffers() error
	ClearRxBuffers() error
	ClearPeriodicMsgs() error
	ClearMsgFilters() error
}
