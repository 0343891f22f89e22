// Package ptmock is an in-memory loopback implementation of the
// passthru.Library/Device/Channel interfaces: a virtual CAN bus with no
// real hardware, used by tests and by the demo command.
package ptmock

import (
	"log"
	"sync"
	"time"

	"github.com/gocanist/iso15765shim/passthru"
)

// WriteRecord captures one message handed to WriteMsgs, for assertions
// in tests that exercise a Channel as a black box.
type WriteRecord struct {
	Msg       passthru.Message
	Timestamp time.Time
}

// Responder computes an automatic reply to a written message, used to
// script a flow-control peer or an upper-layer request/response pair
// without a second real Channel.
type Responder func(written passthru.Message) (reply passthru.Message, ok bool)

// Channel is a virtual CAN channel: writes are recorded and optionally
// answered by a scripted Responder, whose replies land in an rx queue
// that ReadMsgs drains in order.
type Channel struct {
	mu        sync.Mutex
	rx        []passthru.Message
	writeLog  []WriteRecord
	responder Responder
	verbose   bool
}

// NewChannel returns an empty virtual channel.
func NewChannel() *Channel {
	return &Channel{}
}

// SetResponder installs the automatic-reply function used by WriteMsgs.
func (c *Channel) SetResponder(r Responder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responder = r
}

// SetVerbose toggles per-frame logging, off by default to keep test
// output quiet.
func (c *Channel) SetVerbose(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbose = v
}

// Inject queues a frame as if it arrived from the wire, for tests that
// drive ReadMsgs directly without a Responder.
func (c *Channel) Inject(msg passthru.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rx = append(c.rx, msg)
}

// WriteLog returns a copy of every message written so far.
func (c *Channel) WriteLog() []WriteRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WriteRecord, len(c.writeLog))
	copy(out, c.writeLog)
	return out
}

func (c *Channel) WriteMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range msgs {
		c.writeLog = append(c.writeLog, WriteRecord{Msg: m, Timestamp: time.Now()})
		if c.verbose {
			log.Printf("[ptmock] TX id=%X data=% X", m.ID(), m.Data[:m.DataSize])
		}
		if c.responder != nil {
			if reply, ok := c.responder(m); ok {
				c.rx = append(c.rx, reply)
			}
		}
	}
	return len(msgs), nil
}

func (c *Channel) ReadMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.rx) == 0 {
		return 0, passthru.NewError(passthru.ErrBufferEmpty, "no frames pending")
	}
	n := 0
	for n < len(msgs) && n < len(c.rx) {
		msgs[n] = c.rx[n]
		if c.verbose {
			log.Printf("[ptmock] RX id=%X data=% X", msgs[n].ID(), msgs[n].Data[:msgs[n].DataSize])
		}
		n++
	}
	c.rx = c.rx[n:]
	return n, nil
}

func (c *Channel) StartMsgFilter(filterType passthru.FilterType, maskMsg, patternMsg, flowControlMsg *passthru.Message) (passthru.MsgFilter, error) {
	return new(struct{}), nil
}

func (c *Channel) StopMsgFilter(f passthru.MsgFilter) error { return nil }

func (c *Channel) StartPeriodicMsg(msg *passthru.Message, intervalMs uint32) (passthru.PeriodicMsg, error) {
	return new(struct{}), nil
}

func (c *Channel) StopPeriodicMsg(p passthru.PeriodicMsg) error { return nil }

func (c *Channel) Ioctl(id passthru.IoctlID, input, output []byte) error { return nil }

func (c *Channel) GetConfig(params []passthru.SConfig) error { return nil }

func (c *Channel) SetConfig(params []passthru.SConfig) error { return nil }

func (c *Channel) ClearTxBuffers() error {
	return passthru.NewError(passthru.ErrNotSupported, "mock channel does not track tx buffers")
}

func (c *Channel) ClearRxBuffers() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rx = nil
	return nil
}

func (c *Channel) ClearPeriodicMsgs() error { return nil }

func (c *Channel) ClearMsgFilters() error { return nil }
