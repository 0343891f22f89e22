package iso15765

import "github.com/gocanist/iso15765shim/passthru"

// Library decorates a wrapped passthru.Library, producing Devices whose
// Connect call understands the ISO15765 protocol.
type Library struct {
	wrapped passthru.Library
	log     logger
}

// NewLibrary wraps a passthru.Library, tagging every Device it opens
// with log for the ISO15765 channels it will later produce.
func NewLibrary(wrapped passthru.Library, log logger) *Library {
	if log == nil {
		log = nopLogger{}
	}
	return &Library{wrapped: wrapped, log: log}
}

func (l *Library) Open(name string) (passthru.Device, error) {
	dev, err := l.wrapped.Open(name)
	if err != nil {
		return nil, err
	}
	return NewDevice(dev, l.log), nil
}

func (l *Library) Close(d passthru.Device) error {
	if isoDev, ok := d.(*Device); ok {
		return l.wrapped.Close(isoDev.wrapped)
	}
	return l.wrapped.Close(d)
}

func (l *Library) GetLastError() string {
	return l.wrapped.GetLastError()
}
