package passthru

import (
	"testing"

	"github.com/gocanist/iso15765shim/canframe"
)

func TestMessageIDRoundTrip(t *testing.T) {
	var m Message
	m.SetID(0x18DA10F1)
	if got := m.ID(); got != 0x18DA10F1 {
		t.Fatalf("ID() = %X, want 0x18DA10F1", got)
	}
}

func TestMessagePayload(t *testing.T) {
	var m Message
	m.SetID(0x7E0)
	m.Data[canframe.IDPrefix] = 0x02
	m.Data[canframe.IDPrefix+1] = 0x10
	m.DataSize = canframe.IDPrefix + 2
	p := m.Payload()
	if len(p) != 2 || p[0] != 0x02 || p[1] != 0x10 {
		t.Fatalf("Payload() = % X, want [02 10]", p)
	}
}

func TestMessagePayloadEmptyWhenNoData(t *testing.T) {
	var m Message
	m.DataSize = canframe.IDPrefix
	if p := m.Payload(); p != nil {
		t.Fatalf("Payload() = % X, want nil", p)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrTimeout, "flow control wait exceeded %dms", 25)
	if err.Error() != "ERR_TIMEOUT: flow control wait exceeded 25ms" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestErrorIs(t *testing.T) {
	err := NewError(ErrFailed, "bad sequence number")
	if !err.Is(KindOf(ErrFailed)) {
		t.Fatalf("expected Is(ErrFailed) to match")
	}
	if err.Is(KindOf(ErrTimeout)) {
		t.Fatalf("expected Is(ErrTimeout) not to match")
	}
}
