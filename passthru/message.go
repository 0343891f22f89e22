// Package passthru defines the J2534 Pass-Thru style data model and the
// interfaces the ISO15765 shim consumes from (and is composed onto) the
// wrapped vehicle-interface layer: Library, Device, and Channel. This
// layer — device/library open-close plumbing, the non-ISO15765 ioctls,
// periodic-message scheduling, platform logging of the underlying
// transport — is out of scope for this shim; only the interfaces are
// defined here, with ptmock providing an in-memory implementation.
package passthru

import "github.com/gocanist/iso15765shim/canframe"

// MaxDataSize is the largest Data payload a Message can carry: the 4-byte
// CAN-id prefix plus the 4095-byte ISO-TP maximum payload, with a little
// headroom matching the real PASSTHRU_MSG struct's fixed buffer.
const MaxDataSize = 4 + 4095 + 29

// Message mirrors the PASSTHRU_MSG structure at the Pass-Thru API
// boundary. The first 4 bytes of Data carry the big-endian 29-bit CAN
// identifier (see canframe.EncodeID/DecodeID); the rest is payload.
type Message struct {
	ProtocolID     uint32
	RxStatus       uint32
	TxFlags        uint32
	Timestamp      uint32
	DataSize       uint32
	ExtraDataIndex uint32
	Data           [MaxDataSize]byte
}

// ID decodes the 29-bit CAN identifier from the first 4 bytes of Data.
func (m *Message) ID() canframe.CanID {
	var buf [4]byte
	copy(buf[:], m.Data[:4])
	return canframe.DecodeID(&buf)
}

// SetID encodes id into the first 4 bytes of Data.
func (m *Message) SetID(id canframe.CanID) {
	var buf [4]byte
	canframe.EncodeID(id, &buf)
	copy(m.Data[:4], buf[:])
}

// Payload returns the bytes of Data after the 4-byte id prefix, up to
// DataSize.
func (m *Message) Payload() []byte {
	if m.DataSize <= canframe.IDPrefix {
		return nil
	}
	return m.Data[canframe.IDPrefix:m.DataSize]
}
