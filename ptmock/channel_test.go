package ptmock

import (
	"testing"

	"github.com/gocanist/iso15765shim/passthru"
)

func TestChannelWriteThenInjectedRead(t *testing.T) {
	ch := NewChannel()
	var m passthru.Message
	m.SetID(0x123)
	m.DataSize = 4

	n, err := ch.WriteMsgs([]passthru.Message{m}, 0)
	if err != nil || n != 1 {
		t.Fatalf("WriteMsgs: n=%d err=%v", n, err)
	}
	if len(ch.WriteLog()) != 1 {
		t.Fatalf("expected write recorded")
	}

	ch.Inject(m)
	out := make([]passthru.Message, 1)
	n, err = ch.ReadMsgs(out, 0)
	if err != nil || n != 1 {
		t.Fatalf("ReadMsgs: n=%d err=%v", n, err)
	}
	if out[0].ID() != 0x123 {
		t.Fatalf("unexpected id: %X", out[0].ID())
	}
}

func TestChannelReadMsgsEmptyReturnsError(t *testing.T) {
	ch := NewChannel()
	out := make([]passthru.Message, 1)
	if _, err := ch.ReadMsgs(out, 0); err == nil {
		t.Fatalf("expected error on empty rx queue")
	}
}

func TestChannelResponder(t *testing.T) {
	ch := NewChannel()
	ch.SetResponder(func(written passthru.Message) (passthru.Message, bool) {
		var reply passthru.Message
		reply.SetID(written.ID() + 1)
		reply.DataSize = 4
		return reply, true
	})

	var m passthru.Message
	m.SetID(0x700)
	m.DataSize = 4
	if _, err := ch.WriteMsgs([]passthru.Message{m}, 0); err != nil {
		t.Fatalf("WriteMsgs failed: %v", err)
	}

	out := make([]passthru.Message, 1)
	n, err := ch.ReadMsgs(out, 0)
	if err != nil || n != 1 {
		t.Fatalf("ReadMsgs: n=%d err=%v", n, err)
	}
	if out[0].ID() != 0x701 {
		t.Fatalf("expected scripted reply id 0x701, got %X", out[0].ID())
	}
}
