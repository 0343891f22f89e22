package transfer

import (
	"time"

	"github.com/gocanist/iso15765shim/canframe"
	"github.com/gocanist/iso15765shim/passthru"
)

const maxPayload = 0x0FFF // ISO-TP FirstFrame length field is 12 bits

// Write sends msg as one complete ISO-TP dialogue: a Single Frame, or a
// First Frame followed by Consecutive Frames paced by the peer's flow
// control. It blocks until the whole message is on the wire, the
// deadline expires, or the peer's traffic is malformed.
//
// Write requires the Transfer to be in Start; a call made mid-dialogue
// fails with INVALID_MSG and resets.
func (t *Transfer) Write(rw ReadWriter, msg *passthru.Message, deadline time.Time) error {
	if t.state != Start {
		t.Reset()
		return passthru.NewError(passthru.ErrInvalidMsg, "write called while transfer is %s", t.state)
	}
	if msg.DataSize < canframe.IDPrefix {
		return passthru.NewError(passthru.ErrInvalidMsg, "message shorter than id prefix")
	}

	payloadLen := msg.DataSize - canframe.IDPrefix
	if payloadLen > maxPayload {
		return passthru.NewError(passthru.ErrInvalidMsg, "payload %d exceeds ISO-TP maximum %d", payloadLen, maxPayload)
	}

	if remaining(deadline) == 0 {
		return passthru.NewError(passthru.ErrTimeout, "deadline already expired")
	}

	t.buf.SetID(t.flowControl)
	t.buf.ProtocolID = uint32(passthru.ProtocolCAN)
	t.buf.RxStatus = 0
	t.buf.TxFlags = 0
	pad := msg.TxFlags&passthru.TxFlagISO15765FramePad != 0

	if err := t.writeStart(rw, msg, payloadLen, pad, deadline); err != nil {
		t.Reset()
		return err
	}

	for t.offset < msg.DataSize {
		if remaining(deadline) == 0 {
			t.Reset()
			return passthru.NewError(passthru.ErrTimeout, "deadline expired mid-transfer")
		}
		switch t.state {
		case AwaitingFlowControl:
			if err := t.awaitFlowControl(rw, deadline); err != nil {
				t.Reset()
				return err
			}
		case Block:
			if err := t.writeBlock(rw, msg, pad, deadline); err != nil {
				t.Reset()
				return err
			}
		default:
			t.Reset()
			return passthru.NewError(passthru.ErrFailed, "unexpected state %s mid-write", t.state)
		}
	}

	t.Reset()
	return nil
}

func (t *Transfer) writeStart(rw Writer, msg *passthru.Message, payloadLen uint32, pad bool, deadline time.Time) error {
	if payloadLen <= 7 {
		t.buf.Data[4] = canframe.PCIByte(canframe.SingleFrame) | byte(payloadLen)
		copy(t.buf.Data[5:5+payloadLen], msg.Payload())
		t.buf.DataSize = canframe.IDPrefix + canframe.PCISize + payloadLen
		if pad {
			padTo12(&t.buf)
		}
		t.offset = msg.DataSize
		t.state = AwaitingFlowControl
		return t.emit(rw, deadline)
	}

	t.buf.Data[4] = canframe.PCIByte(canframe.FirstFrame) | byte((payloadLen>>8)&0x0F)
	t.buf.Data[5] = byte(payloadLen)
	copy(t.buf.Data[6:12], msg.Payload()[:6])
	t.buf.DataSize = 12
	t.sequence = 1
	if pad {
		padTo12(&t.buf)
	}
	t.offset = canframe.IDPrefix + 6
	t.state = AwaitingFlowControl
	return t.emit(rw, deadline)
}

func (t *Transfer) awaitFlowControl(rw Reader, deadline time.Time) error {
	var frames [1]passthru.Message
	n, err := rw.ReadMsgs(frames[:], remaining(deadline))
	if err != nil || n != 1 {
		return passthru.NewError(passthru.ErrTimeout, "flow control not received")
	}
	frame := &frames[0]
	if frame.DataSize < canframe.IDPrefix+canframe.PCISize {
		return passthru.NewError(passthru.ErrFailed, "flow control frame too short")
	}
	if frame.ID()&t.mask != t.pattern {
		return passthru.NewError(passthru.ErrFailed, "flow control id mismatch")
	}
	if canframe.PCIOf(frame.Data[canframe.IDPrefix]) != canframe.FlowControl {
		return passthru.NewError(passthru.ErrFailed, "expected flow control frame")
	}
	t.bs = frame.Data[canframe.IDPrefix+1]
	t.stmin = frame.Data[canframe.IDPrefix+2]
	sleepSTmin(t.stmin)
	t.state = Block
	return nil
}

func (t *Transfer) writeBlock(rw Writer, msg *passthru.Message, pad bool, deadline time.Time) error {
	remainingBytes := msg.DataSize - t.offset
	n := remainingBytes
	if n > 7 {
		n = 7
	}
	t.buf.Data[4] = canframe.PCIByte(canframe.ConsecutiveFrame) | t.sequence
	copy(t.buf.Data[5:5+n], msg.Data[t.offset:t.offset+n])
	t.buf.DataSize = canframe.IDPrefix + canframe.PCISize + n
	if pad {
		padTo12(&t.buf)
	}
	t.sequence = (t.sequence + 1) & 0x0F
	t.offset += n

	if err := t.emit(rw, deadline); err != nil {
		return err
	}

	// A block size of 0 means the peer wants no further flow control.
	if t.bs != 0 {
		t.bs--
		if t.bs == 0 {
			t.state = AwaitingFlowControl
			return nil
		}
	}
	sleepSTmin(t.stmin)
	return nil
}

func (t *Transfer) emit(rw Writer, deadline time.Time) error {
	var frames [1]passthru.Message
	frames[0] = t.buf
	n, err := rw.WriteMsgs(frames[:], remaining(deadline))
	if !countSuccess(n, err) {
		return passthru.NewError(passthru.ErrFailed, "wrapped channel write failed")
	}
	return nil
}

func padTo12(m *passthru.Message) {
	for i := m.DataSize; i < canframe.IDPrefix+canframe.CANPayload; i++ {
		m.Data[i] = 0
	}
	m.DataSize = canframe.IDPrefix + canframe.CANPayload
}

func sleepSTmin(stmin byte) {
	if stmin == 0 {
		return
	}
	time.Sleep(time.Duration(stmin) * time.Millisecond)
}
