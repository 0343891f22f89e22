package transfer

import (
	"testing"
	"time"

	"github.com/gocanist/iso15765shim/canframe"
	"github.com/gocanist/iso15765shim/passthru"
)

// loopback is a minimal ReadWriter + FlowControlConfig test double: writes
// land in a queue that reads drain from, and it can be scripted to answer
// flow control frames or to capture consecutive frames for assertions.
type loopback struct {
	written []passthru.Message
	toRead  []passthru.Message

	bs, stmin byte

	// onWrite lets a test script a responder: e.g. answer a FirstFrame
	// with a FlowControl frame before the next read is consumed.
	onWrite func(m passthru.Message)
}

func (l *loopback) WriteMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error) {
	for _, m := range msgs {
		l.written = append(l.written, m)
		if l.onWrite != nil {
			l.onWrite(m)
		}
	}
	return len(msgs), nil
}

func (l *loopback) ReadMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error) {
	if len(l.toRead) == 0 {
		return 0, passthru.NewError(passthru.ErrBufferEmpty, "no frames queued")
	}
	n := 0
	for n < len(msgs) && n < len(l.toRead) {
		msgs[n] = l.toRead[n]
		n++
	}
	l.toRead = l.toRead[n:]
	return n, nil
}

func (l *loopback) FlowControl() (byte, byte) { return l.bs, l.stmin }

func flowControlFrame(flowControlID canframe.CanID, bs, stmin byte) passthru.Message {
	var m passthru.Message
	m.SetID(flowControlID)
	m.Data[canframe.IDPrefix] = canframe.PCIByte(canframe.FlowControl)
	m.Data[canframe.IDPrefix+1] = bs
	m.Data[canframe.IDPrefix+2] = stmin
	m.DataSize = canframe.IDPrefix + canframe.CANPayload
	return m
}

func buildMessage(id canframe.CanID, payload []byte, pad bool) passthru.Message {
	var m passthru.Message
	m.SetID(id)
	copy(m.Data[canframe.IDPrefix:], payload)
	m.DataSize = canframe.IDPrefix + uint32(len(payload))
	if pad {
		m.TxFlags = passthru.TxFlagISO15765FramePad
	}
	return m
}

func TestSingleFrameRoundTrip(t *testing.T) {
	id := canframe.CanID(0x18DA10F1)
	mask := canframe.CanID(0x1FFFFFFF)
	msg := buildMessage(id, []byte{0x01, 0x02, 0x03}, false)

	sender := New(mask, id, id)
	lb := &loopback{}
	if err := sender.Write(lb, &msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(lb.written) != 1 {
		t.Fatalf("expected 1 frame written, got %d", len(lb.written))
	}
	wire := lb.written[0]
	want := []byte{0x18, 0xDA, 0x10, 0xF1, 0x03, 0x01, 0x02, 0x03}
	if got := wire.Data[:8]; !bytesEqual(got, want) {
		t.Fatalf("unexpected wire bytes: % X, want % X", got, want)
	}
	if sender.State() != Start {
		t.Fatalf("expected sender reset to Start, got %s", sender.State())
	}

	receiver := New(mask, id, id)
	result, ready, err := receiver.Read(&loopback{}, nil, &wire, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if result != Ready {
		t.Fatalf("expected Ready, got %v", result)
	}
	if !bytesEqual(ready.Payload(), []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("unexpected payload: % X", ready.Payload())
	}
	if ready.ID() != id {
		t.Fatalf("expected reassembled id %X, got %X", id, ready.ID())
	}
}

func TestFirstFrameConsecutiveFrameBS2(t *testing.T) {
	id := canframe.CanID(0x700)
	mask := canframe.CanID(0x7FF)
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i)
	}
	msg := buildMessage(id, payload, true)

	lb := &loopback{toRead: []passthru.Message{flowControlFrame(id, 2, 0)}}
	sender := New(mask, id, id)
	if err := sender.Write(lb, &msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(lb.written) != 3 {
		t.Fatalf("expected FF + 2 CFs, got %d frames", len(lb.written))
	}
	ff := lb.written[0]
	if ff.Data[4] != 0x10 || ff.Data[5] != 0x14 {
		t.Fatalf("unexpected FF PCI/length bytes: %02X %02X", ff.Data[4], ff.Data[5])
	}
	cf1, cf2 := lb.written[1], lb.written[2]
	if cf1.Data[4] != 0x21 {
		t.Fatalf("expected CF1 sequence 1, got PCI %02X", cf1.Data[4])
	}
	if cf2.Data[4] != 0x22 {
		t.Fatalf("expected CF2 sequence 2, got PCI %02X", cf2.Data[4])
	}
	if cf2.DataSize != 12 {
		t.Fatalf("expected padded CF2 data size 12, got %d", cf2.DataSize)
	}

	receiver := New(mask, id, id)
	fcWriter := &loopback{}
	readCfg := &loopback{bs: 2, stmin: 0}
	r1, _, err := receiver.Read(fcWriter, readCfg, &ff, time.Now().Add(time.Second))
	if err != nil || r1 != Incomplete {
		t.Fatalf("expected Incomplete after FF, got %v err=%v", r1, err)
	}
	r2, _, err := receiver.Read(fcWriter, readCfg, &cf1, time.Now().Add(time.Second))
	if err != nil || r2 != Incomplete {
		t.Fatalf("expected Incomplete after CF1, got %v err=%v", r2, err)
	}
	r3, ready, err := receiver.Read(fcWriter, readCfg, &cf2, time.Now().Add(time.Second))
	if err != nil || r3 != Ready {
		t.Fatalf("expected Ready after CF2, got %v err=%v", r3, err)
	}
	if !bytesEqual(ready.Payload(), payload) {
		t.Fatalf("reassembled payload mismatch: % X", ready.Payload())
	}
}

func TestFirstFrameConsecutiveFrameBS1TwoFlowControlExchanges(t *testing.T) {
	id := canframe.CanID(0x700)
	mask := canframe.CanID(0x7FF)
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i)
	}
	msg := buildMessage(id, payload, false)

	lb := &loopback{toRead: []passthru.Message{
		flowControlFrame(id, 1, 0),
		flowControlFrame(id, 1, 0),
	}}
	sender := New(mask, id, id)
	if err := sender.Write(lb, &msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(lb.toRead) != 0 {
		t.Fatalf("expected both flow control frames consumed")
	}
	if len(lb.written) != 3 {
		t.Fatalf("expected FF + 2 CFs, got %d", len(lb.written))
	}
}

func TestReadBadSequenceAborts(t *testing.T) {
	id := canframe.CanID(0x700)
	mask := canframe.CanID(0x7FF)
	payload := make([]byte, 20)
	msg := buildMessage(id, payload, false)

	lb := &loopback{toRead: []passthru.Message{flowControlFrame(id, 0, 0)}}
	sender := New(mask, id, id)
	if err := sender.Write(lb, &msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ff := lb.written[0]
	badCF := lb.written[1]
	badCF.Data[4] = canframe.PCIByte(canframe.ConsecutiveFrame) | 3 // expected 1

	receiver := New(mask, id, id)
	if _, _, err := receiver.Read(&loopback{}, &loopback{}, &ff, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("FF read failed: %v", err)
	}
	result, ready, err := receiver.Read(&loopback{}, &loopback{}, &badCF, time.Now().Add(time.Second))
	if err == nil || result != Failed || ready != nil {
		t.Fatalf("expected Failed with no partial message, got %v %v %v", result, ready, err)
	}
	if receiver.State() != Start {
		t.Fatalf("expected receiver reset to Start, got %s", receiver.State())
	}
}

func TestReadIDMismatchFails(t *testing.T) {
	mask := canframe.CanID(0x7FF)
	pattern := canframe.CanID(0x700)
	receiver := New(mask, pattern, pattern)

	var frame passthru.Message
	frame.SetID(0x701)
	frame.Data[canframe.IDPrefix] = canframe.PCIByte(canframe.ConsecutiveFrame) | 1
	frame.DataSize = canframe.IDPrefix + 2

	before := receiver.State()
	if _, _, err := receiver.Read(&loopback{}, &loopback{}, &frame, time.Now().Add(time.Second)); err == nil {
		t.Fatalf("expected id mismatch to fail")
	}
	if receiver.State() != before {
		t.Fatalf("state should be unaffected by an id mismatch beyond reset-to-Start")
	}
}

func TestWriteExpiredDeadlineFailsAndLeavesStart(t *testing.T) {
	id := canframe.CanID(0x700)
	mask := canframe.CanID(0x7FF)
	payload := make([]byte, 20)
	msg := buildMessage(id, payload, false)

	lb := &loopback{} // the deadline has already passed: Write fails before emitting any frame
	sender := New(mask, id, id)
	deadline := time.Now().Add(-time.Millisecond)
	err := sender.Write(lb, &msg, deadline)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if sender.State() != Start {
		t.Fatalf("expected sender left in Start, got %s", sender.State())
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
