package passthru

import "fmt"

// Kind enumerates the fixed set of Pass-Thru API error conditions this
// shim can report, mirroring the J2534 PassThru return-code set rather
// than an open-ended error hierarchy.
type Kind int

const (
	// ErrInvalidChannelID indicates a handle that does not refer to a
	// currently connected channel.
	ErrInvalidChannelID Kind = iota
	// ErrInvalidMsg indicates a Message failed structural validation
	// (bad DataSize, bad ProtocolID, oversized payload).
	ErrInvalidMsg
	// ErrInvalidFilterID indicates a handle that does not refer to an
	// installed filter.
	ErrInvalidFilterID
	// ErrBufferEmpty indicates ReadMsgs found nothing within the
	// deadline.
	ErrBufferEmpty
	// ErrBufferFull indicates WriteMsgs could not accept a message.
	ErrBufferFull
	// ErrTimeout indicates an in-progress Transfer missed a protocol
	// timing requirement (FC wait, CF wait) before its deadline.
	ErrTimeout
	// ErrFailed is a catch-all for malformed traffic: wrong sequence
	// number, unexpected PCI type, mismatched flow-control target.
	ErrFailed
	// ErrNotSupported indicates an operation this shim deliberately
	// does not implement (e.g. ClearMsgFilters on an ISO15765 channel).
	ErrNotSupported
	// ErrNullParameter indicates a required pointer/slice argument was
	// nil or empty.
	ErrNullParameter
)

var kindNames = map[Kind]string{
	ErrInvalidChannelID: "ERR_INVALID_CHANNEL_ID",
	ErrInvalidMsg:       "ERR_INVALID_MSG",
	ErrInvalidFilterID:  "ERR_INVALID_FILTER_ID",
	ErrBufferEmpty:      "ERR_BUFFER_EMPTY",
	ErrBufferFull:       "ERR_BUFFER_FULL",
	ErrTimeout:          "ERR_TIMEOUT",
	ErrFailed:           "ERR_FAILED",
	ErrNotSupported:     "ERR_NOT_SUPPORTED",
	ErrNullParameter:    "ERR_NULL_PARAMETER",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "ERR_UNKNOWN"
}

// Error is the error type returned across the Pass-Thru boundary. It
// carries a Kind for programmatic dispatch and a free-form message for
// GetLastError-style reporting.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an Error with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given kind, supporting
// errors.Is(err, passthru.KindOf(passthru.ErrTimeout)) style checks
// against a sentinel built with KindOf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns a sentinel *Error of the given kind, suitable as the
// target of errors.Is.
func KindOf(k Kind) *Error {
	return &Error{Kind: k}
}
