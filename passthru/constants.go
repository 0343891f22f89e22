package passthru

// ProtocolID selects the wire protocol a channel is connected to.
type ProtocolID uint32

const (
	ProtocolJ1850VPW ProtocolID = 1
	ProtocolJ1850PWM ProtocolID = 2
	ProtocolISO9141  ProtocolID = 3
	ProtocolISO14230 ProtocolID = 4
	ProtocolCAN      ProtocolID = 5
	ProtocolISO15765 ProtocolID = 6
)

// RxStatus bits, as reported on received Messages.
const (
	RxStatusTxMsgType          uint32 = 0x00000001
	RxStatusStartOfMessage     uint32 = 0x00000002
	RxStatusRxBreak            uint32 = 0x00000004
	RxStatusTxIndication       uint32 = 0x00000008
	RxStatusISO15765PaddingErr uint32 = 0x00000010
	RxStatusISO15765AddrType   uint32 = 0x00000080
)

// TxFlags bits, as set on Messages handed to WriteMsgs.
const (
	TxFlagISO15765FramePad uint32 = 0x00000040
	TxFlagISO15765AddrType uint32 = 0x00000080
)

// FilterType selects the behavior of StartMsgFilter.
type FilterType uint32

const (
	FilterPass        FilterType = 1
	FilterBlock       FilterType = 2
	FilterFlowControl FilterType = 3
)

// IoctlID selects the operation of Device/Channel.Ioctl.
type IoctlID uint32

const (
	IoctlGetConfig         IoctlID = 0x01
	IoctlSetConfig         IoctlID = 0x02
	IoctlReadVBatt         IoctlID = 0x03
	IoctlClearTxBuffers    IoctlID = 0x07
	IoctlClearRxBuffers    IoctlID = 0x08
	IoctlClearPeriodicMsgs IoctlID = 0x09
	IoctlClearMsgFilters   IoctlID = 0x0A
	IoctlReadProgVoltage   IoctlID = 0x0E
)

// ConfigParam ids. The ISO15765_* ids are handled locally by an ISO15765
// channel; every other id is forwarded to the wrapped channel's ioctl.
type ConfigParamID uint32

const (
	ConfigDataRate         ConfigParamID = 0x01
	ConfigLoopback         ConfigParamID = 0x03
	ConfigNodeAddress      ConfigParamID = 0x04
	ConfigISO15765BS       ConfigParamID = 0x1E
	ConfigISO15765STmin    ConfigParamID = 0x1F
	ConfigISO15765AddrType ConfigParamID = 0x20
)

// SConfig is one (parameter, value) pair of a GET_CONFIG/SET_CONFIG call.
type SConfig struct {
	Parameter ConfigParamID
	Value     uint32
}
