package ptmock

import (
	"log"
	"sync"

	"github.com/gocanist/iso15765shim/passthru"
)

// Device is a virtual vehicle interface: Connect always succeeds and
// returns a fresh Channel.
type Device struct {
	mu       sync.Mutex
	channels []*Channel
}

// NewDevice returns a virtual Device with no open channels.
func NewDevice() *Device {
	return &Device{}
}

func (d *Device) Connect(protocolID passthru.ProtocolID, flags uint32, baudRate uint32) (passthru.Channel, error) {
	ch := NewChannel()
	d.mu.Lock()
	d.channels = append(d.channels, ch)
	d.mu.Unlock()
	log.Printf("[ptmock] connected protocol=%d baud=%d", protocolID, baudRate)
	return ch, nil
}

func (d *Device) Disconnect(ch passthru.Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.channels {
		if c == ch {
			d.channels = append(d.channels[:i], d.channels[i+1:]...)
			return nil
		}
	}
	return passthru.NewError(passthru.ErrInvalidChannelID, "channel not open on this device")
}

func (d *Device) SetProgrammingVoltage(pin uint32, voltage uint32) error { return nil }

func (d *Device) ReadVersion() (firmwareVersion, dllVersion, apiVersion string, err error) {
	return "ptmock-fw-1.0", "ptmock-dll-1.0", "ptmock-api-1.0", nil
}

func (d *Device) Ioctl(id passthru.IoctlID, input, output []byte) error { return nil }

// Library is a virtual Pass-Thru library: Open always succeeds.
type Library struct {
	mu      sync.Mutex
	devices []*Device
	lastErr string
}

// NewLibrary returns a virtual Library with no open devices.
func NewLibrary() *Library {
	return &Library{}
}

func (l *Library) Open(name string) (passthru.Device, error) {
	dev := NewDevice()
	l.mu.Lock()
	l.devices = append(l.devices, dev)
	l.mu.Unlock()
	log.Printf("[ptmock] opened device %q", name)
	return dev, nil
}

func (l *Library) Close(d passthru.Device) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, dev := range l.devices {
		if dev == d {
			l.devices = append(l.devices[:i], l.devices[i+1:]...)
			return nil
		}
	}
	l.lastErr = "device not open on this library"
	return passthru.NewError(passthru.ErrInvalidChannelID, l.lastErr)
}

func (l *Library) GetLastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
