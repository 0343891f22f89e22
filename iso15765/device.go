package iso15765

import "github.com/gocanist/iso15765shim/passthru"

// isoProtocolMask is the low 13 bits of a protocol id; caller-visible
// ISO15765 is recognized there, with any higher flag bits preserved.
const isoProtocolMask = 0x1FFF

// Device decorates a wrapped passthru.Device: a Connect request for the
// ISO15765 protocol opens the wrapped channel on CAN and wraps it with
// an ISO15765 Channel; every other protocol is forwarded unchanged.
type Device struct {
	wrapped passthru.Device
	log     logger
}

// NewDevice wraps a connected passthru.Device.
func NewDevice(wrapped passthru.Device, log logger) *Device {
	if log == nil {
		log = nopLogger{}
	}
	return &Device{wrapped: wrapped, log: log}
}

func (d *Device) Connect(protocolID passthru.ProtocolID, flags uint32, baudRate uint32) (passthru.Channel, error) {
	if protocolID&isoProtocolMask != passthru.ProtocolISO15765 {
		return d.wrapped.Connect(protocolID, flags, baudRate)
	}

	rewritten := (protocolID &^ isoProtocolMask) | passthru.ProtocolCAN
	wrappedChannel, err := d.wrapped.Connect(rewritten, flags, baudRate)
	if err != nil {
		return nil, err
	}
	return NewChannel(wrappedChannel, d.log), nil
}

func (d *Device) Disconnect(ch passthru.Channel) error {
	if isoCh, ok := ch.(*Channel); ok {
		return d.wrapped.Disconnect(isoCh.wrapped)
	}
	return d.wrapped.Disconnect(ch)
}

func (d *Device) SetProgrammingVoltage(pin uint32, voltage uint32) error {
	return d.wrapped.SetProgrammingVoltage(pin, voltage)
}

func (d *Device) ReadVersion() (firmwareVersion, dllVersion, apiVersion string, err error) {
	return d.wrapped.ReadVersion()
}

func (d *Device) Ioctl(id passthru.IoctlID, input, output []byte) error {
	return d.wrapped.Ioctl(id, input, output)
}
