// Package transfer implements the per-filter ISO-TP finite state machine:
// one Transfer drives a single flow-control filter's send and receive
// dialogue, fragmenting outbound payloads into Single/First/Consecutive
// frames and reassembling inbound frames back into whole messages.
//
// A Transfer advances only while called; it keeps no goroutine of its
// own and every blocking step (wrapped-channel read/write, STmin sleep)
// is bounded by a deadline passed in by the caller, recomputed before
// each sub-call the way the channel above it is required to.
package transfer

import (
	"time"

	"github.com/gocanist/iso15765shim/canframe"
	"github.com/gocanist/iso15765shim/passthru"
)

// State is the Transfer's current position in the ISO-TP dialogue.
type State int

const (
	Start State = iota
	AwaitingFlowControl
	Block
)

func (s State) String() string {
	switch s {
	case Start:
		return "Start"
	case AwaitingFlowControl:
		return "AwaitingFlowControl"
	case Block:
		return "Block"
	default:
		return "Unknown"
	}
}

// Writer is the blocking wrapped-channel dependency a Transfer writes
// CAN frames through.
type Writer interface {
	WriteMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error)
}

// Reader is the blocking wrapped-channel dependency a Transfer reads
// raw CAN frames from while awaiting flow control.
type Reader interface {
	ReadMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error)
}

// ReadWriter is the combined dependency Transfer.Write needs: it both
// writes data/FF/CF frames and reads the FlowControl responses to them.
type ReadWriter interface {
	Reader
	Writer
}

// FlowControlConfig supplies the BS/STmin pair a Transfer rereads every
// time it emits a FlowControl frame, per the receive-side reconfiguration
// behavior carried over from the original implementation.
type FlowControlConfig interface {
	FlowControl() (bs byte, stmin byte)
}

// ReadResult is the outcome of a single Transfer.Read call.
type ReadResult int

const (
	Incomplete ReadResult = iota
	Ready
	Failed
)

// Transfer is the per-filter ISO-TP state machine. It is not safe for
// concurrent use; callers serialize access the way the channel above
// it is required to.
type Transfer struct {
	mask, pattern, flowControl canframe.CanID

	state    State
	offset   uint32
	sequence byte
	bs       byte
	stmin    byte

	buf passthru.Message
}

// New creates a Transfer seeded with a filter's three identifiers, in
// the Start state.
func New(mask, pattern, flowControl canframe.CanID) *Transfer {
	return &Transfer{mask: mask, pattern: pattern, flowControl: flowControl}
}

// Mask, Pattern, FlowControl return the identifiers this Transfer was
// seeded with, for the filter registry's lookups.
func (t *Transfer) Mask() canframe.CanID          { return t.mask }
func (t *Transfer) Pattern() canframe.CanID       { return t.pattern }
func (t *Transfer) FlowControlID() canframe.CanID { return t.flowControl }

// State reports the Transfer's current FSM state.
func (t *Transfer) State() State { return t.state }

// Reset returns the Transfer to Start and clears all transient fields.
func (t *Transfer) Reset() {
	t.state = Start
	t.offset = 0
	t.sequence = 0
	t.bs = 0
	t.stmin = 0
	t.buf = passthru.Message{}
}

func remaining(deadline time.Time) uint32 {
	d := time.Until(deadline)
	if d <= 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}

func countSuccess(n int, err error) bool {
	return err == nil && n == 1
}
