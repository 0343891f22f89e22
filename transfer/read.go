package transfer

import (
	"time"

	"github.com/gocanist/iso15765shim/canframe"
	"github.com/gocanist/iso15765shim/passthru"
)

// Read feeds one incoming CAN frame into the reassembly state machine.
// It returns Ready with the completed message when frame finishes a
// dialogue, Incomplete while more frames are expected, or Failed (with
// the Transfer reset) on malformed traffic. No partially reassembled
// message is ever returned.
func (t *Transfer) Read(rw Writer, cfg FlowControlConfig, frame *passthru.Message, deadline time.Time) (ReadResult, *passthru.Message, error) {
	if frame.DataSize < canframe.IDPrefix {
		t.Reset()
		return Failed, nil, passthru.NewError(passthru.ErrInvalidMsg, "frame shorter than id prefix")
	}
	if frame.ID()&t.mask != t.pattern {
		t.Reset()
		return Failed, nil, passthru.NewError(passthru.ErrFailed, "frame id does not match filter")
	}

	pci := frame.Data[canframe.IDPrefix]
	kind := canframe.PCIOf(pci)

	switch t.state {
	case Start:
		return t.readStart(rw, cfg, frame, kind, deadline)
	case Block:
		return t.readBlock(rw, cfg, frame, kind, deadline)
	default:
		t.Reset()
		return Failed, nil, passthru.NewError(passthru.ErrFailed, "unexpected state %s on read", t.state)
	}
}

func (t *Transfer) readStart(rw Writer, cfg FlowControlConfig, frame *passthru.Message, kind canframe.PCIType, deadline time.Time) (ReadResult, *passthru.Message, error) {
	switch kind {
	case canframe.SingleFrame:
		n := uint32(canframe.LowNibble(frame.Data[canframe.IDPrefix]))
		t.buf.SetID(t.pattern)
		t.buf.ProtocolID = uint32(passthru.ProtocolISO15765)
		t.buf.RxStatus = frame.RxStatus
		copy(t.buf.Data[canframe.IDPrefix:canframe.IDPrefix+n], frame.Data[canframe.IDPrefix+1:canframe.IDPrefix+1+n])
		t.buf.DataSize = canframe.IDPrefix + n
		result := t.buf
		t.Reset()
		return Ready, &result, nil

	case canframe.FirstFrame:
		length := uint32(canframe.LowNibble(frame.Data[canframe.IDPrefix]))<<8 | uint32(frame.Data[canframe.IDPrefix+1])
		t.buf.SetID(t.pattern)
		t.buf.ProtocolID = uint32(passthru.ProtocolISO15765)
		t.buf.RxStatus = frame.RxStatus
		t.buf.DataSize = canframe.IDPrefix + length
		copy(t.buf.Data[canframe.IDPrefix:canframe.IDPrefix+6], frame.Data[canframe.IDPrefix+2:canframe.IDPrefix+8])
		t.offset = canframe.IDPrefix + 6
		t.sequence = 1
		if err := t.sendFlowControl(rw, cfg, deadline); err != nil {
			t.Reset()
			return Failed, nil, err
		}
		t.state = Block
		return Incomplete, nil, nil

	default:
		t.Reset()
		return Failed, nil, passthru.NewError(passthru.ErrFailed, "unexpected frame type in Start")
	}
}

func (t *Transfer) readBlock(rw Writer, cfg FlowControlConfig, frame *passthru.Message, kind canframe.PCIType, deadline time.Time) (ReadResult, *passthru.Message, error) {
	if kind != canframe.ConsecutiveFrame {
		t.Reset()
		return Failed, nil, passthru.NewError(passthru.ErrFailed, "unexpected frame type in Block")
	}

	seq := canframe.LowNibble(frame.Data[canframe.IDPrefix])
	if seq != t.sequence&0x0F {
		t.Reset()
		return Failed, nil, passthru.NewError(passthru.ErrFailed, "wrong sequence number: got %d want %d", seq, t.sequence&0x0F)
	}

	remainingBytes := t.buf.DataSize - t.offset
	n := remainingBytes
	if n > 7 {
		n = 7
	}
	copy(t.buf.Data[t.offset:t.offset+n], frame.Data[canframe.IDPrefix+1:canframe.IDPrefix+1+n])
	t.buf.RxStatus = frame.RxStatus
	t.sequence = (t.sequence + 1) & 0x0F
	t.offset += n

	// A block size of 0 asked the peer for no further flow control.
	if t.bs != 0 {
		t.bs--
		if t.bs == 0 && t.offset < t.buf.DataSize {
			if err := t.sendFlowControl(rw, cfg, deadline); err != nil {
				t.Reset()
				return Failed, nil, err
			}
		}
	}

	if t.offset >= t.buf.DataSize {
		result := t.buf
		t.Reset()
		return Ready, &result, nil
	}
	return Incomplete, nil, nil
}

// sendFlowControl rereads BS/STmin from the channel configuration every
// call, so a reconfiguration between blocks takes effect on the next FC.
func (t *Transfer) sendFlowControl(rw Writer, cfg FlowControlConfig, deadline time.Time) error {
	bs, stmin := byte(0), byte(0)
	if cfg != nil {
		bs, stmin = cfg.FlowControl()
	}
	t.bs = bs
	t.stmin = stmin

	var fc passthru.Message
	fc.SetID(t.flowControl)
	fc.Data[canframe.IDPrefix] = canframe.PCIByte(canframe.FlowControl)
	fc.Data[canframe.IDPrefix+1] = bs
	fc.Data[canframe.IDPrefix+2] = stmin
	fc.DataSize = canframe.IDPrefix + canframe.CANPayload
	for i := fc.DataSize - 5; i < fc.DataSize; i++ {
		fc.Data[i] = 0
	}

	var frames [1]passthru.Message
	frames[0] = fc
	n, err := rw.WriteMsgs(frames[:], remaining(deadline))
	if !countSuccess(n, err) {
		return passthru.NewError(passthru.ErrFailed, "flow control write failed")
	}
	return nil
}
