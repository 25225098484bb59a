package monitor

import (
	"context"
	"testing"

	"switchd/internal/machine"
)

// fakeBus records writes and serves a canned read.
type fakeBus struct {
	writes   [][]byte
	reply    []byte
	writeErr error
	readErr  error
	closed   bool
}

func (b *fakeBus) Write(p []byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	b.writes = append(b.writes, cp)
	return nil
}

func (b *fakeBus) Read(p []byte) (int, error) {
	if b.readErr != nil {
		return 0, b.readErr
	}
	return copy(p, b.reply), nil
}

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func openerFor(b *fakeBus) BusOpener {
	return func(index int) (Bus, error) { return b, nil }
}

func TestSetInputPacket(t *testing.T) {
	bus := &fakeBus{}
	d := NewDDC(openerFor(bus))

	if err := d.SetInput(context.Background(), 0, machine.HDMI2); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}
	if len(bus.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(bus.writes))
	}

	// Set VCP 0x60 = 0x12 (HDMI-2): 51 84 03 60 00 12, checksum over 0x6E.
	want := []byte{0x51, 0x84, 0x03, 0x60, 0x00, 0x12}
	want = append(want, checksum(0x6E, want))

	got := bus.writes[0]
	if len(got) != len(want) {
		t.Fatalf("packet length: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("packet byte %d: want 0x%02x, got 0x%02x", i, want[i], got[i])
		}
	}
	if !bus.closed {
		t.Error("bus must be closed after the command")
	}
}

func TestSetInputChecksum(t *testing.T) {
	// Worked example from the DDC/CI spec style: xor of address and body.
	body := []byte{0x51, 0x84, 0x03, 0x60, 0x00, 0x12}
	var want byte = 0x6E
	for _, b := range body {
		want ^= b
	}
	if got := checksum(0x6E, body); got != want {
		t.Errorf("checksum: want 0x%02x, got 0x%02x", want, got)
	}
}

func TestSetInputUnknownSource(t *testing.T) {
	d := NewDDC(openerFor(&fakeBus{}))
	err := d.SetInput(context.Background(), 0, machine.InputSource("SCART-1"))
	if !IsUnsupported(err) {
		t.Errorf("expected Unsupported for unmapped source, got %v", err)
	}
}

// vcpReply builds a well-formed Get VCP Feature reply for the value.
func vcpReply(opcode byte, value uint16) []byte {
	body := []byte{
		0x6E, 0x88, 0x02, 0x00, opcode, 0x00,
		0x00, 0x00, byte(value >> 8), byte(value),
	}
	return append(body, checksum(0x50, body))
}

func TestCurrentInput(t *testing.T) {
	bus := &fakeBus{reply: vcpReply(0x60, 0x11)}
	d := NewDDC(openerFor(bus))

	src, err := d.CurrentInput(context.Background(), 0)
	if err != nil {
		t.Fatalf("CurrentInput failed: %v", err)
	}
	if src != machine.HDMI1 {
		t.Errorf("expected HDMI-1, got %s", src)
	}

	// The request packet must ask for VCP 0x60.
	if len(bus.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(bus.writes))
	}
	req := bus.writes[0]
	if req[2] != 0x01 || req[3] != 0x60 {
		t.Errorf("unexpected request packet % x", req)
	}
}

func TestCurrentInputBadChecksum(t *testing.T) {
	reply := vcpReply(0x60, 0x11)
	reply[10] ^= 0xFF
	d := NewDDC(openerFor(&fakeBus{reply: reply}))

	_, err := d.CurrentInput(context.Background(), 0)
	if !IsTransient(err) {
		t.Errorf("corrupt reply should be transient, got %v", err)
	}
}

func TestCurrentInputUnsupportedOpcode(t *testing.T) {
	reply := vcpReply(0x60, 0)
	reply[3] = 0x01 // result code: unsupported VCP
	reply[10] = checksum(0x50, reply[:10])
	d := NewDDC(openerFor(&fakeBus{reply: reply}))

	_, err := d.CurrentInput(context.Background(), 0)
	if !IsUnsupported(err) {
		t.Errorf("expected Unsupported, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	transient := &Error{Kind: KindTransient, Op: "set input"}
	unsupported := &Error{Kind: KindUnsupported, Op: "set input"}
	unknown := &Error{Kind: KindUnknown, Op: "set input"}

	if !IsTransient(transient) || IsTransient(unsupported) || IsTransient(unknown) {
		t.Error("IsTransient misclassified")
	}
	if !IsUnsupported(unsupported) || IsUnsupported(transient) {
		t.Error("IsUnsupported misclassified")
	}
	if IsTransient(nil) || IsUnsupported(nil) {
		t.Error("nil error must not classify")
	}
}
