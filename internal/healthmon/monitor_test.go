package healthmon

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/printfan/internal/clock"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
	printerrepo "github.com/smallbiznis/printfan/internal/printer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupMonitor(t *testing.T, prober Prober) (*Monitor, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&printerdomain.PrinterEndpoint{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	if prober == nil {
		prober = NewTCPProber()
	}
	monitor := New(Params{
		Config:      Config{Interval: time.Minute, ProbeTimeout: time.Second},
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		PrinterRepo: printerrepo.Provide(),
		Prober:      prober,
	})
	return monitor, db, node
}

func seedNetworkPrinter(t *testing.T, db *gorm.DB, node *snowflake.Node, address string, port int) printerdomain.PrinterEndpoint {
	t.Helper()
	endpoint := printerdomain.PrinterEndpoint{
		ID:        node.Generate(),
		Name:      "printer-" + strconv.Itoa(port),
		Address:   address,
		Port:      port,
		Transport: printerdomain.TransportNetwork,
		Active:    true,
		Health:    printerdomain.HealthUnknown,
	}
	require.NoError(t, printerrepo.Provide().Insert(context.Background(), db, &endpoint))
	return endpoint
}

func TestRunOnceMarksReachablePrinterOnline(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	monitor, db, node := setupMonitor(t, nil)
	port := listener.Addr().(*net.TCPAddr).Port
	endpoint := seedNetworkPrinter(t, db, node, "127.0.0.1", port)

	require.NoError(t, monitor.RunOnce(context.Background()))

	got, err := printerrepo.Provide().FindByID(context.Background(), db, endpoint.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, printerdomain.HealthOnline, got.Health)
	require.NotNil(t, got.LastProbedAt)
}

func TestRunOnceMarksRefusedPrinterOffline(t *testing.T) {
	// Grab a port that nothing listens on.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	monitor, db, node := setupMonitor(t, nil)
	endpoint := seedNetworkPrinter(t, db, node, "127.0.0.1", port)

	require.NoError(t, monitor.RunOnce(context.Background()))

	got, err := printerrepo.Provide().FindByID(context.Background(), db, endpoint.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, printerdomain.HealthOffline, got.Health)
}

func TestSerialPrintersAreNotProbed(t *testing.T) {
	calls := &countingProber{}
	monitor, db, node := setupMonitor(t, calls)

	endpoint := printerdomain.PrinterEndpoint{
		ID:        node.Generate(),
		Name:      "Legacy",
		Address:   "/dev/ttyUSB0",
		Transport: printerdomain.TransportSerial,
		Active:    true,
	}
	require.NoError(t, printerrepo.Provide().Insert(context.Background(), db, &endpoint))

	require.NoError(t, monitor.RunOnce(context.Background()))
	assert.Zero(t, calls.count())
}

func TestDeactivatedPrintersStillProbed(t *testing.T) {
	calls := &countingProber{}
	monitor, db, node := setupMonitor(t, calls)

	endpoint := printerdomain.PrinterEndpoint{
		ID:        node.Generate(),
		Name:      "Patio",
		Address:   "10.0.0.8",
		Port:      9100,
		Transport: printerdomain.TransportNetwork,
		Active:    false,
		Health:    printerdomain.HealthUnknown,
	}
	require.NoError(t, printerrepo.Provide().Insert(context.Background(), db, &endpoint))

	require.NoError(t, monitor.RunOnce(context.Background()))
	assert.Equal(t, 1, calls.count())

	got, err := printerrepo.Provide().FindByID(context.Background(), db, endpoint.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, printerdomain.HealthOnline, got.Health)
}

type countingProber struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (p *countingProber) Probe(ctx context.Context, endpoint printerdomain.PrinterEndpoint) printerdomain.HealthState {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	return printerdomain.HealthOnline
}

func (p *countingProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestOverlappingSweepSkipsInFlightPrinter(t *testing.T) {
	prober := &countingProber{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	monitor, db, node := setupMonitor(t, prober)
	seedNetworkPrinter(t, db, node, "10.0.0.5", 9100)

	done := make(chan struct{})
	go func() {
		_ = monitor.RunOnce(context.Background())
		close(done)
	}()

	<-prober.started

	// Second sweep while the first probe is still in flight: the busy
	// printer is skipped, not double-probed.
	require.NoError(t, monitor.RunOnce(context.Background()))
	assert.Equal(t, 1, prober.count())

	close(prober.release)
	<-done
}
