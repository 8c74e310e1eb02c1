package hwtest

import (
	"context"
	"fmt"
	"net"
)

// Relay command bytes. The bench relay controller speaks a one-byte
// protocol: lowercase cuts power, uppercase restores it.
const (
	powerOffByte = 'b'
	powerOnByte  = 'B'
)

// PowerController switches a board's power supply.
type PowerController interface {
	Off(ctx context.Context) error
	On(ctx context.Context) error
}

// RelayPower drives a networked relay controller. Each pulse is its own
// connection: dial, write one byte, close. The relay latches, so no state
// is kept here.
type RelayPower struct {
	addr string
}

// NewRelayPower returns a controller for the relay at addr (host:port).
func NewRelayPower(addr string) *RelayPower {
	return &RelayPower{addr: addr}
}

func (p *RelayPower) Off(ctx context.Context) error {
	return p.pulse(ctx, powerOffByte)
}

func (p *RelayPower) On(ctx context.Context) error {
	return p.pulse(ctx, powerOnByte)
}

func (p *RelayPower) pulse(ctx context.Context, b byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("failed to reach power relay at %s: %w", p.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write([]byte{b}); err != nil {
		return fmt.Errorf("failed to send power command to %s: %w", p.addr, err)
	}
	return nil
}
