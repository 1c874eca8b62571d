package healthmon

import (
	"context"
	"errors"
	"net"
	"syscall"

	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
)

// Prober classifies one endpoint's reachability. Probe never returns an
// error: a failed probe is data, not a fault.
type Prober interface {
	Probe(ctx context.Context, endpoint printerdomain.PrinterEndpoint) printerdomain.HealthState
}

// TCPProber dials the printer's socket and immediately closes. Thermal
// printers accept the connection even while busy, so connect success is
// a good enough liveness signal.
type TCPProber struct {
	dialer net.Dialer
}

func NewTCPProber() *TCPProber {
	return &TCPProber{}
}

func (p *TCPProber) Probe(ctx context.Context, endpoint printerdomain.PrinterEndpoint) printerdomain.HealthState {
	conn, err := p.dialer.DialContext(ctx, "tcp", endpoint.HostPort())
	if err == nil {
		conn.Close()
		return printerdomain.HealthOnline
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return printerdomain.HealthOffline
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return printerdomain.HealthOffline
	}
	// DNS failures, protocol oddities: reachable-ish but not healthy.
	return printerdomain.HealthDegraded
}
