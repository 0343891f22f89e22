package iso15765

import "github.com/gocanist/iso15765shim/passthru"

// Config holds the three configuration parameters an ISO15765 channel
// handles locally; every other parameter id is forwarded to the wrapped
// channel's own Ioctl(GET_CONFIG/SET_CONFIG).
type Config struct {
	BS       byte
	STmin    byte
	AddrType uint32
}

// NewConfig returns a Config with BS and STmin both 0 ("no FC needed" /
// no minimum separation), matching the wrapped channel's power-on
// defaults until a caller sets otherwise.
func NewConfig() *Config {
	return &Config{}
}

// FlowControl satisfies transfer.FlowControlConfig: Transfer rereads
// this pair on every FlowControl frame it emits.
func (c *Config) FlowControl() (bs byte, stmin byte) {
	return c.BS, c.STmin
}

// Get fills value for the local parameters this Config owns, and
// reports whether id was one of them.
func (c *Config) Get(id passthru.ConfigParamID) (value uint32, handled bool) {
	switch id {
	case passthru.ConfigISO15765BS:
		return uint32(c.BS), true
	case passthru.ConfigISO15765STmin:
		return uint32(c.STmin), true
	case passthru.ConfigISO15765AddrType:
		return c.AddrType, true
	default:
		return 0, false
	}
}

// Set stores value for the local parameters this Config owns, and
// reports whether id was one of them.
func (c *Config) Set(id passthru.ConfigParamID, value uint32) (handled bool) {
	switch id {
	case passthru.ConfigISO15765BS:
		c.BS = byte(value)
		return true
	case passthru.ConfigISO15765STmin:
		c.STmin = byte(value)
		return true
	case passthru.ConfigISO15765AddrType:
		c.AddrType = value
		return true
	default:
		return false
	}
}
