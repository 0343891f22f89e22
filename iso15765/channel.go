// Package iso15765 implements the ISO15765 channel: the facade that
// demultiplexes raw CAN traffic on a wrapped Pass-Thru channel into
// ISO-TP Transfers, one per installed flow-control filter.
package iso15765

import (
	"time"

	"github.com/gocanist/iso15765shim/passthru"
	"github.com/gocanist/iso15765shim/transfer"
)

// logger is the minimal structured-logging dependency this package
// consumes; ptlog.Logger satisfies it.
type logger interface {
	Printf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// Channel wraps a raw CAN passthru.Channel and presents the ISO15765
// facade: readMsgs/writeMsgs operate on whole ISO-TP messages, filters
// are flow-control triples instead of raw CAN masks, and BS/STmin are
// local configuration instead of wrapped-channel ioctls.
type Channel struct {
	wrapped  passthru.Channel
	registry *registry
	config   *Config
	log      logger
}

// Wrapped returns the raw CAN channel this ISO15765 channel decorates.
func (c *Channel) Wrapped() passthru.Channel { return c.wrapped }

// NewChannel wraps an already-connected CAN channel as an ISO15765
// channel.
func NewChannel(wrapped passthru.Channel, log logger) *Channel {
	if log == nil {
		log = nopLogger{}
	}
	return &Channel{wrapped: wrapped, registry: newRegistry(), config: NewConfig(), log: log}
}

func deadlineFrom(timeoutMs uint32) time.Time {
	return time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
}

func msLeft(deadline time.Time) uint32 {
	d := time.Until(deadline)
	if d <= 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}

// WriteMsgs fragments each message through the Transfer its CAN
// identifier resolves to via the flow-control registry. Messages with
// no matching filter are skipped and logged; they do not count toward
// the returned total, and do not stop the batch.
func (c *Channel) WriteMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error) {
	deadline := deadlineFrom(timeoutMs)
	sent := 0
	for i := range msgs {
		if msLeft(deadline) == 0 {
			break
		}
		e := c.registry.byFlowControl(msgs[i].ID())
		if e == nil {
			c.log.Printf("writeMsgs: no filter for flow control id %X, skipping", msgs[i].ID())
			continue
		}
		if err := e.transfer.Write(c.wrapped, &msgs[i], deadline); err != nil {
			c.log.Printf("writeMsgs: transfer to %X failed: %v", e.flowControl, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// ReadMsgs reads raw CAN frames from the wrapped channel and dispatches
// each to the Transfer its identifier matches under the filter
// registry, filling msgs with whole reassembled ISO-TP messages.
// Unmatched frames and Transfers still reassembling do not consume a
// slot.
func (c *Channel) ReadMsgs(msgs []passthru.Message, timeoutMs uint32) (int, error) {
	deadline := deadlineFrom(timeoutMs)
	filled := 0
	for filled < len(msgs) {
		if msLeft(deadline) == 0 {
			break
		}
		var frames [1]passthru.Message
		n, err := c.wrapped.ReadMsgs(frames[:], msLeft(deadline))
		if err != nil || n != 1 {
			break
		}
		frame := &frames[0]
		e := c.registry.byPattern(frame.ID())
		if e == nil {
			continue
		}
		result, ready, err := e.transfer.Read(c.wrapped, c.config, frame, deadline)
		if err != nil {
			c.log.Printf("readMsgs: transfer for %X failed: %v", e.pattern, err)
			continue
		}
		if result != transfer.Ready {
			continue
		}
		msgs[filled] = *ready
		filled++
	}
	return filled, nil
}

// StartMsgFilter installs a flow-control filter: a PASS filter on the
// wrapped CAN channel plus a Transfer seeded with the original
// (unmasked) identifiers. Any other filter type is forwarded unchanged.
func (c *Channel) StartMsgFilter(filterType passthru.FilterType, maskMsg, patternMsg, flowControlMsg *passthru.Message) (passthru.MsgFilter, error) {
	if filterType != passthru.FilterFlowControl {
		return c.wrapped.StartMsgFilter(filterType, maskMsg, patternMsg, flowControlMsg)
	}
	if maskMsg == nil || patternMsg == nil || flowControlMsg == nil {
		return nil, passthru.NewError(passthru.ErrNullParameter, "flow control filter requires mask, pattern and flow control messages")
	}

	maskCopy := *maskMsg
	patternCopy := *patternMsg
	rewriteForCAN(&maskCopy)
	rewriteForCAN(&patternCopy)

	wrappedFilter, err := c.wrapped.StartMsgFilter(passthru.FilterPass, &maskCopy, &patternCopy, nil)
	if err != nil {
		return nil, err
	}

	e := c.registry.add(maskMsg.ID(), patternMsg.ID(), flowControlMsg.ID(), wrappedFilter)
	return e, nil
}

// rewriteForCAN prepares a copy of a mask/pattern message for
// installation on the raw CAN layer: ISO15765-specific bits have no
// meaning there and would reject otherwise-matching frames.
func rewriteForCAN(m *passthru.Message) {
	m.ProtocolID = uint32(passthru.ProtocolCAN)
	m.RxStatus &^= passthru.RxStatusISO15765PaddingErr | passthru.RxStatusISO15765AddrType
	m.TxFlags &^= passthru.TxFlagISO15765FramePad
}

// StopMsgFilter releases a flow-control filter's wrapped PASS filter
// and drops its registry entry. A handle unknown to this registry is
// forwarded to the wrapped channel as-is.
func (c *Channel) StopMsgFilter(f passthru.MsgFilter) error {
	e, ok := f.(*entry)
	if !ok || !c.registry.remove(e) {
		return c.wrapped.StopMsgFilter(f)
	}
	return c.wrapped.StopMsgFilter(e.wrapped)
}

func (c *Channel) StartPeriodicMsg(msg *passthru.Message, intervalMs uint32) (passthru.PeriodicMsg, error) {
	return c.wrapped.StartPeriodicMsg(msg, intervalMs)
}

func (c *Channel) StopPeriodicMsg(p passthru.PeriodicMsg) error {
	return c.wrapped.StopPeriodicMsg(p)
}

// Ioctl forwards every request verbatim to the wrapped channel. The
// local ISO15765 handling of configuration and the Clear* operations
// happens only through their dedicated methods, not through Ioctl.
func (c *Channel) Ioctl(id passthru.IoctlID, input, output []byte) error {
	return c.wrapped.Ioctl(id, input, output)
}

// GetConfig answers ISO15765_BS/ISO15765_STMIN/ISO15765_ADDR_TYPE
// locally and forwards every other parameter to the wrapped channel in
// a single batched call.
func (c *Channel) GetConfig(params []passthru.SConfig) error {
	var forward []int
	for i, p := range params {
		if value, ok := c.config.Get(p.Parameter); ok {
			params[i].Value = value
			continue
		}
		forward = append(forward, i)
	}
	return c.forwardGet(params, forward)
}

func (c *Channel) forwardGet(params []passthru.SConfig, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	batch := make([]passthru.SConfig, len(indices))
	for i, idx := range indices {
		batch[i] = params[idx]
	}
	if err := c.wrapped.GetConfig(batch); err != nil {
		return err
	}
	for i, idx := range indices {
		params[idx].Value = batch[i].Value
	}
	return nil
}

// SetConfig stores ISO15765_BS/ISO15765_STMIN/ISO15765_ADDR_TYPE
// locally and forwards every other parameter to the wrapped channel in
// a single batched call.
func (c *Channel) SetConfig(params []passthru.SConfig) error {
	var forward []passthru.SConfig
	for _, p := range params {
		if !c.config.Set(p.Parameter, p.Value) {
			forward = append(forward, p)
		}
	}
	if len(forward) == 0 {
		return nil
	}
	return c.wrapped.SetConfig(forward)
}

// ClearTxBuffers, ClearRxBuffers and ClearPeriodicMsgs are not
// intercepted by this shim and are reported unsupported, as in the
// wrapped implementation they are distinguished from.
func (c *Channel) ClearTxBuffers() error {
	return passthru.NewError(passthru.ErrNotSupported, "clearTxBuffers is not handled by the ISO15765 shim")
}

func (c *Channel) ClearRxBuffers() error {
	return passthru.NewError(passthru.ErrNotSupported, "clearRxBuffers is not handled by the ISO15765 shim")
}

func (c *Channel) ClearPeriodicMsgs() error {
	return passthru.NewError(passthru.ErrNotSupported, "clearPeriodicMsgs is not handled by the ISO15765 shim")
}

// ClearMsgFilters empties the flow-control filter registry, releasing
// every wrapped PASS filter it owned, but still reports unsupported:
// the wrapped channel's own filters (if any were installed outside
// this shim) are left untouched, so the operation as a whole cannot
// claim success.
func (c *Channel) ClearMsgFilters() error {
	for _, wrapped := range c.registry.clear() {
		if err := c.wrapped.StopMsgFilter(wrapped); err != nil {
			c.log.Printf("clearMsgFilters: failed to release wrapped filter: %v", err)
		}
	}
	return passthru.NewError(passthru.ErrNotSupported, "clearMsgFilters is not handled by the ISO15765 shim")
}
