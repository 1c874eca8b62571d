package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/smallbiznis/printfan/internal/dispatch/domain"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
)

// TCP writes raw payload bytes to the printer's socket, the way thermal
// printers speaking the 9100 raw protocol expect.
type TCP struct {
	dialer net.Dialer
}

func NewTCP() *TCP {
	return &TCP{}
}

func Provide() domain.Transport {
	return NewTCP()
}

func (t *TCP) Send(ctx context.Context, endpoint printerdomain.PrinterEndpoint, payload []byte) error {
	if endpoint.Transport != printerdomain.TransportNetwork {
		return fmt.Errorf("unsupported transport %q", endpoint.Transport)
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", endpoint.HostPort())
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if _, err := conn.Write(payload); err != nil {
		return err
	}
	return conn.Close()
}
