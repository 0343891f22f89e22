// Command iso15765shim wires the ISO15765 channel over an in-memory
// ptmock transport and drives one diagnostic-style request/response
// exchange end to end, the way the wrapped transport's own demo does.
package main

import (
	"log"

	"github.com/gocanist/iso15765shim/canframe"
	"github.com/gocanist/iso15765shim/iso15765"
	"github.com/gocanist/iso15765shim/passthru"
	"github.com/gocanist/iso15765shim/ptlog"
	"github.com/gocanist/iso15765shim/ptmock"
)

const (
	requestID  canframe.CanID = 0x7E0
	responseID canframe.CanID = 0x7E8
)

func main() {
	logger, err := ptlog.New(".", "iso15765shim")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Close()

	lib := iso15765.NewLibrary(ptmock.NewLibrary(), logger)
	dev, err := lib.Open("ptmock0")
	if err != nil {
		log.Fatalf("open device: %v", err)
	}

	ch, err := dev.Connect(passthru.ProtocolISO15765, 0, 500000)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	isoCh, ok := ch.(*iso15765.Channel)
	if !ok {
		log.Fatal("expected an ISO15765 channel")
	}

	if err := isoCh.SetConfig([]passthru.SConfig{
		{Parameter: passthru.ConfigISO15765BS, Value: 0},
		{Parameter: passthru.ConfigISO15765STmin, Value: 0},
	}); err != nil {
		log.Fatalf("set config: %v", err)
	}

	// pattern matches frames arriving from the ECU (its response id);
	// flowControl is the id this side transmits with, for both the
	// segmented request and the flow control frames it sends back.
	mask := newMessage(0x1FFFFFFF)
	pattern := newMessage(uint32(responseID))
	flowControl := newMessage(uint32(requestID))
	if _, err := ch.StartMsgFilter(passthru.FilterFlowControl, &mask, &pattern, &flowControl); err != nil {
		log.Fatalf("start msg filter: %v", err)
	}

	scriptECU(ch)

	request := newMessage(uint32(requestID))
	payload := []byte{0x22, 0xF1, 0x90} // ReadDataByIdentifier-style diagnostic request
	copy(request.Data[canframe.IDPrefix:], payload)
	request.DataSize = canframe.IDPrefix + uint32(len(payload))

	n, err := ch.WriteMsgs([]passthru.Message{request}, 1000)
	if err != nil || n != 1 {
		log.Fatalf("write request: n=%d err=%v", n, err)
	}

	responses := make([]passthru.Message, 1)
	n, err = ch.ReadMsgs(responses, 1000)
	if err != nil || n != 1 {
		log.Fatalf("read response: n=%d err=%v", n, err)
	}
	log.Printf("response from %X: % X", responses[0].ID(), responses[0].Payload())
}

func newMessage(id uint32) passthru.Message {
	var m passthru.Message
	m.SetID(canframe.CanID(id))
	m.DataSize = canframe.IDPrefix
	return m
}

// scriptECU seeds the remote ECU's multi-frame response directly onto
// the underlying ptmock transport's rx queue: a FirstFrame followed by
// one ConsecutiveFrame, as if the ECU had already answered by the time
// readMsgs is called.
func scriptECU(ch passthru.Channel) {
	mockChannel, ok := underlyingMock(ch)
	if !ok {
		return
	}
	response := []byte{0x62, 0xF1, 0x90, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	mockChannel.Inject(buildFirstFrame(response))
	mockChannel.Inject(buildConsecutiveFrame(1, response[6:]))
}

func underlyingMock(ch passthru.Channel) (*ptmock.Channel, bool) {
	if isoCh, ok := ch.(*iso15765.Channel); ok {
		return underlyingMock(isoCh.Wrapped())
	}
	m, ok := ch.(*ptmock.Channel)
	return m, ok
}

func buildFirstFrame(payload []byte) passthru.Message {
	var m passthru.Message
	m.SetID(responseID)
	m.Data[canframe.IDPrefix] = canframe.PCIByte(canframe.FirstFrame) | byte((len(payload)>>8)&0x0F)
	m.Data[canframe.IDPrefix+1] = byte(len(payload))
	copy(m.Data[canframe.IDPrefix+2:], payload[:6])
	m.DataSize = canframe.IDPrefix + canframe.CANPayload
	return m
}

func buildConsecutiveFrame(seq byte, payload []byte) passthru.Message {
	var m passthru.Message
	m.SetID(responseID)
	m.Data[canframe.IDPrefix] = canframe.PCIByte(canframe.ConsecutiveFrame) | seq
	copy(m.Data[canframe.IDPrefix+1:], payload)
	m.DataSize = canframe.IDPrefix + canframe.PCISize + uint32(len(payload))
	return m
}
