// Package machine defines the two-machine ownership model and the monitor
// input sources each machine maps to.
//
// A KM switch routes one keyboard/mouse pair between exactly two computers.
// switchd models the side currently holding the devices as an Identity and
// follows it by selecting the matching monitor input over DDC/CI.
package machine

import (
	"fmt"
	"strings"
)

// Identity names which machine currently owns the KM switch.
type Identity string

const (
	// Unknown means no ownership has been confirmed yet (fresh install,
	// or the persisted record could not be read).
	Unknown Identity = ""
	// Home is the primary desktop machine. Input devices appearing on
	// this host means the switch routed to it.
	Home Identity = "home"
	// Work is the work laptop. Input devices disappearing from this host
	// means the switch routed away to it.
	Work Identity = "work"
)

// ParseIdentity converts a configuration string into an Identity.
func ParseIdentity(s string) (Identity, error) {
	switch Identity(strings.ToLower(strings.TrimSpace(s))) {
	case Home:
		return Home, nil
	case Work:
		return Work, nil
	default:
		return Unknown, fmt.Errorf("unknown machine %q (want %q or %q)", s, Home, Work)
	}
}

// Valid reports whether the identity is one of the two known machines.
func (i Identity) Valid() bool {
	return i == Home || i == Work
}

// Other returns the opposite machine. Other of Unknown is Unknown.
func (i Identity) Other() Identity {
	switch i {
	case Home:
		return Work
	case Work:
		return Home
	default:
		return Unknown
	}
}

// InputSource names a monitor input port.
type InputSource string

// Input sources the original hardware supports. The names match the
// configuration file values.
const (
	HDMI1 InputSource = "HDMI-1"
	HDMI2 InputSource = "HDMI-2"
	DP1   InputSource = "DisplayPort-1"
	DP2   InputSource = "DisplayPort-2"
	DVI1  InputSource = "DVI-1"
	DVI2  InputSource = "DVI-2"
	VGA1  InputSource = "VGA-1"
)

// vcpValues maps each input source to its VCP feature 0x60 (Input Select)
// value per MCCS. VGA is the analog RGB value 0x01.
var vcpValues = map[InputSource]uint16{
	VGA1:  0x01,
	DVI1:  0x03,
	DVI2:  0x04,
	DP1:   0x0F,
	DP2:   0x10,
	HDMI1: 0x11,
	HDMI2: 0x12,
}

// VCPValue returns the VCP Input Select value for the source.
// ok is false for sources this build does not know how to select.
func (s InputSource) VCPValue() (value uint16, ok bool) {
	value, ok = vcpValues[s]
	return value, ok
}

// InputFromVCP maps a VCP Input Select value read back from a monitor to
// its InputSource name.
func InputFromVCP(value uint16) (InputSource, bool) {
	for src, v := range vcpValues {
		if v == value {
			return src, true
		}
	}
	return "", false
}

// ParseInput converts a configuration string into an InputSource.
// Matching is case-insensitive on the canonical names.
func ParseInput(s string) (InputSource, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for src := range vcpValues {
		if strings.ToLower(string(src)) == want {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown input source %q", s)
}

// InputNames returns the supported input source names in a stable order.
func InputNames() []string {
	return []string{
		string(HDMI1), string(HDMI2),
		string(DP1), string(DP2),
		string(DVI1), string(DVI2),
		string(VGA1),
	}
}
