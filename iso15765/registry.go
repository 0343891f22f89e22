package iso15765

import (
	"github.com/gocanist/iso15765shim/canframe"
	"github.com/gocanist/iso15765shim/passthru"
	"github.com/gocanist/iso15765shim/transfer"
)

// entry is one active flow-control filter: the identifiers it was
// installed with, the wrapped PASS filter it owns on the underlying CAN
// channel, and the Transfer that drives its ISO-TP dialogue.
type entry struct {
	mask, pattern, flowControl canframe.CanID
	wrapped                    passthru.MsgFilter
	transfer                   *transfer.Transfer
}

// registry is the channel's insertion-ordered set of active flow-control
// filters. Ties on overlapping patterns resolve to the first registered.
type registry struct {
	entries []*entry
}

func newRegistry() *registry {
	return &registry{}
}

func (r *registry) add(mask, pattern, flowControl canframe.CanID, wrapped passthru.MsgFilter) *entry {
	e := &entry{
		mask:        mask,
		pattern:     pattern,
		flowControl: flowControl,
		wrapped:     wrapped,
		transfer:    transfer.New(mask, pattern, flowControl),
	}
	r.entries = append(r.entries, e)
	return e
}

// remove drops e from the registry. It is a no-op if e is not present
// (already removed, or foreign to this registry).
func (r *registry) remove(e *entry) bool {
	for i, candidate := range r.entries {
		if candidate == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// byFlowControl returns the first entry whose flow-control id matches,
// used by writeMsgs to find which Transfer owns an outbound CAN-id.
func (r *registry) byFlowControl(id canframe.CanID) *entry {
	for _, e := range r.entries {
		if e.flowControl == id {
			return e
		}
	}
	return nil
}

// byPattern returns the first entry whose pattern matches id under its
// mask, used by readMsgs to demultiplex incoming CAN frames.
func (r *registry) byPattern(id canframe.CanID) *entry {
	for _, e := range r.entries {
		if id&e.mask == e.pattern {
			return e
		}
	}
	return nil
}

// clear empties the registry and returns the wrapped filter handles of
// every entry removed, so the caller can release them.
func (r *registry) clear() []passthru.MsgFilter {
	wrapped := make([]passthru.MsgFilter, 0, len(r.entries))
	for _, e := range r.entries {
		wrapped = append(wrapped, e.wrapped)
	}
	r.entries = nil
	return wrapped
}
