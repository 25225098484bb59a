package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"switchd/internal/machine"
)

// DDC/CI framing constants. The monitor listens on I2C address 0x37;
// packets are addressed with the shifted write address 0x6E and carry a
// source address of 0x51 (host). Replies are checksummed against 0x50.
const (
	ddcHostAddr     = 0x51
	ddcWriteAddr    = 0x6E
	ddcReplyXorAddr = 0x50

	vcpSetOpcode     = 0x03
	vcpRequestOpcode = 0x01
	vcpReplyOpcode   = 0x02

	// VCP feature 0x60: Input Select.
	vcpInputSelect = 0x60

	// Monitors need time to prepare a reply after a VCP request.
	ddcReplyDelay = 50 * time.Millisecond
)

// Bus moves raw bytes to one monitor's DDC/CI slave address.
type Bus interface {
	Write(p []byte) error
	Read(p []byte) (int, error)
	Close() error
}

// BusOpener opens the bus for the monitor at the given index.
type BusOpener func(index int) (Bus, error)

// DDC drives monitors over DDC/CI using a BusOpener for transport.
type DDC struct {
	open BusOpener
}

// NewDDC creates an adapter over the given transport.
func NewDDC(open BusOpener) *DDC {
	return &DDC{open: open}
}

// SetInput implements Adapter.
func (d *DDC) SetInput(ctx context.Context, index int, source machine.InputSource) error {
	value, ok := source.VCPValue()
	if !ok {
		return &Error{Kind: KindUnsupported, Op: "set input",
			Err: fmt.Errorf("no VCP value for input %q", source)}
	}

	bus, err := d.open(index)
	if err != nil {
		return wrapBusErr("set input", err)
	}
	defer bus.Close()

	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindTransient, Op: "set input", Err: err}
	}
	if err := bus.Write(setVCPPacket(vcpInputSelect, value)); err != nil {
		return wrapBusErr("set input", err)
	}
	return nil
}

// CurrentInput implements Adapter.
func (d *DDC) CurrentInput(ctx context.Context, index int) (machine.InputSource, error) {
	bus, err := d.open(index)
	if err != nil {
		return "", wrapBusErr("read input", err)
	}
	defer bus.Close()

	if err := bus.Write(getVCPPacket(vcpInputSelect)); err != nil {
		return "", wrapBusErr("read input", err)
	}

	select {
	case <-time.After(ddcReplyDelay):
	case <-ctx.Done():
		return "", &Error{Kind: KindTransient, Op: "read input", Err: ctx.Err()}
	}

	reply := make([]byte, 11)
	n, err := bus.Read(reply)
	if err != nil {
		return "", wrapBusErr("read input", err)
	}

	value, err := parseVCPReply(reply[:n], vcpInputSelect)
	if err != nil {
		return "", err
	}

	src, ok := machine.InputFromVCP(value)
	if !ok {
		return "", &Error{Kind: KindUnknown, Op: "read input",
			Err: fmt.Errorf("monitor reports unmapped input value 0x%02x", value)}
	}
	return src, nil
}

// setVCPPacket builds a Set VCP Feature packet for the opcode and value.
func setVCPPacket(opcode byte, value uint16) []byte {
	p := []byte{
		ddcHostAddr,
		0x80 | 4, // length: opcode byte + 3 data bytes
		vcpSetOpcode,
		opcode,
		byte(value >> 8),
		byte(value),
	}
	return append(p, checksum(ddcWriteAddr, p))
}

// getVCPPacket builds a Get VCP Feature request for the opcode.
func getVCPPacket(opcode byte) []byte {
	p := []byte{
		ddcHostAddr,
		0x80 | 2,
		vcpRequestOpcode,
		opcode,
	}
	return append(p, checksum(ddcWriteAddr, p))
}

// parseVCPReply extracts the current value from a Get VCP Feature reply.
func parseVCPReply(reply []byte, opcode byte) (uint16, error) {
	fail := func(format string, args ...any) (uint16, error) {
		return 0, &Error{Kind: KindTransient, Op: "read input",
			Err: fmt.Errorf(format, args...)}
	}

	if len(reply) < 11 {
		return fail("short reply (%d bytes)", len(reply))
	}
	if reply[0] != ddcWriteAddr {
		return fail("bad source address 0x%02x", reply[0])
	}
	if reply[1]&0x7F != 8 {
		return fail("bad reply length 0x%02x", reply[1])
	}
	if chk := checksum(ddcReplyXorAddr, reply[:10]); chk != reply[10] {
		return fail("checksum mismatch: want 0x%02x, got 0x%02x", chk, reply[10])
	}
	if reply[2] != vcpReplyOpcode {
		return fail("unexpected reply opcode 0x%02x", reply[2])
	}
	if reply[3] != 0 {
		// Result code 1: unsupported VCP code.
		return 0, &Error{Kind: KindUnsupported, Op: "read input",
			Err: fmt.Errorf("monitor rejected VCP opcode 0x%02x (result %d)", opcode, reply[3])}
	}
	if reply[4] != opcode {
		return fail("reply for wrong opcode 0x%02x", reply[4])
	}
	return uint16(reply[8])<<8 | uint16(reply[9]), nil
}

// wrapBusErr classifies a transport failure, preserving errors that are
// already classified.
func wrapBusErr(op string, err error) error {
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	return &Error{Kind: classifyBusErr(err), Op: op, Err: err}
}

// checksum XORs the addressing byte with the packet body, per DDC/CI.
func checksum(addr byte, body []byte) byte {
	c := addr
	for _, b := range body {
		c ^= b
	}
	return c
}
