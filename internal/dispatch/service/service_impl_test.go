package service

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/printfan/internal/clock"
	"github.com/smallbiznis/printfan/internal/dispatch/domain"
	orderdomain "github.com/smallbiznis/printfan/internal/order/domain"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
	printerrepo "github.com/smallbiznis/printfan/internal/printer/repository"
	"github.com/smallbiznis/printfan/internal/segregate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubSegregator struct {
	partition segregate.Partition
}

func (s *stubSegregator) Segregate(context.Context, orderdomain.Order) (segregate.Partition, error) {
	return s.partition, nil
}

type stubRenderer struct {
	calls int
}

// Render fails when the first line is named "unrenderable" so tests can
// trigger terminal render errors per printer.
func (r *stubRenderer) Render(order orderdomain.Order, lines []orderdomain.LineInstance, modelTag string) ([]byte, error) {
	r.calls++
	if len(lines) > 0 && lines[0].Name == "unrenderable" {
		return nil, errors.New("template blew up")
	}
	return []byte("ticket " + order.Number), nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// fakeTransport returns the scripted error per printer, nil meaning success.
type fakeTransport struct {
	mu       sync.Mutex
	errs     map[snowflake.ID]error
	attempts map[snowflake.ID]int
}

func (f *fakeTransport) Send(ctx context.Context, endpoint printerdomain.PrinterEndpoint, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempts == nil {
		f.attempts = make(map[snowflake.ID]int)
	}
	f.attempts[endpoint.ID]++
	return f.errs[endpoint.ID]
}

func (f *fakeTransport) attemptsFor(id snowflake.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}

type fixture struct {
	svc       domain.Service
	db        *gorm.DB
	node      *snowflake.Node
	clk       *clock.FakeClock
	transport *fakeTransport
	renderer  *stubRenderer
}

func setup(t *testing.T, partition segregate.Partition, transport *fakeTransport) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&printerdomain.PrinterEndpoint{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	renderer := &stubRenderer{}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		Cfg: Config{
			SendTimeout: 100 * time.Millisecond,
			MaxAttempts: 3,
			RetryDelay:  500 * time.Millisecond,
		},
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clk,
		PrinterRepo: printerrepo.Provide(),
		Segregator:  &stubSegregator{partition: partition},
		Renderer:    renderer,
		Transport:   transport,
	})
	return &fixture{svc: svc, db: db, node: node, clk: clk, transport: transport, renderer: renderer}
}

func seedEndpoint(t *testing.T, f *fixture, name string, active bool) printerdomain.PrinterEndpoint {
	t.Helper()
	endpoint := printerdomain.PrinterEndpoint{
		ID:        f.node.Generate(),
		Name:      name,
		Address:   "10.0.0.5",
		Port:      9100,
		Transport: printerdomain.TransportNetwork,
		Active:    active,
	}
	require.NoError(t, printerrepo.Provide().Insert(context.Background(), f.db, &endpoint))
	return endpoint
}

func partitionFor(endpoints ...printerdomain.PrinterEndpoint) segregate.Partition {
	p := segregate.Partition{ByPrinter: make(map[snowflake.ID][]orderdomain.LineInstance)}
	for _, e := range endpoints {
		p.ByPrinter[e.ID] = []orderdomain.LineInstance{{InstanceID: "i-" + e.Name, Name: "dish", Quantity: 1}}
	}
	return p
}

func TestDispatchAllSucceed(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{}, transport)
	kitchen := seedEndpoint(t, f, "Kitchen", true)
	bar := seedEndpoint(t, f, "Bar", true)
	f.svc.(*Service).segregator = &stubSegregator{partition: partitionFor(kitchen, bar)}

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "42"}, domain.Options{})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	for _, endpoint := range []printerdomain.PrinterEndpoint{kitchen, bar} {
		outcome := result.Outcomes[endpoint.ID]
		assert.Equal(t, domain.StatusSuccess, outcome.Status)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Equal(t, endpoint.Name, outcome.PrinterName)
	}
	assert.True(t, result.AllSucceeded())
}

func TestFailureIsolation(t *testing.T) {
	transport := &fakeTransport{errs: map[snowflake.ID]error{}}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", true)
	p2 := seedEndpoint(t, f, "P2", true)
	p3 := seedEndpoint(t, f, "P3", true)
	transport.errs[p2.ID] = timeoutErr{}
	f.svc.(*Service).segregator = &stubSegregator{partition: partitionFor(p1, p2, p3)}

	start := time.Now()
	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "7"}, domain.Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, result.Outcomes[p1.ID].Status)
	assert.Equal(t, domain.StatusSuccess, result.Outcomes[p3.ID].Status)

	failed := result.Outcomes[p2.ID]
	assert.Equal(t, domain.StatusTimeout, failed.Status)
	assert.Equal(t, 3, failed.Attempts)
	assert.NotEmpty(t, failed.LastError)
	assert.Equal(t, 3, transport.attemptsFor(p2.ID))

	// Backoff waits run on the injected clock, so three failing attempts
	// add no wall-clock delay.
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryBackoffUsesInjectedClock(t *testing.T) {
	transport := &fakeTransport{errs: map[snowflake.ID]error{}}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", true)
	transport.errs[p1.ID] = timeoutErr{}
	f.svc.(*Service).segregator = &stubSegregator{partition: partitionFor(p1)}

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "16"}, domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Outcomes[p1.ID].Attempts)

	// Linear backoff between attempts: 1x then 2x the retry delay, all
	// taken on the fake clock.
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, f.clk.Sleeps())
}

func TestConnectionRefusedClassified(t *testing.T) {
	transport := &fakeTransport{errs: map[snowflake.ID]error{}}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", true)
	transport.errs[p1.ID] = syscall.ECONNREFUSED
	f.svc.(*Service).segregator = &stubSegregator{partition: partitionFor(p1)}

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "8"}, domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConnectionRefused, result.Outcomes[p1.ID].Status)
	assert.Equal(t, 3, result.Outcomes[p1.ID].Attempts)
}

func TestRenderErrorIsTerminal(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", true)
	partition := segregate.Partition{ByPrinter: map[snowflake.ID][]orderdomain.LineInstance{
		p1.ID: {{InstanceID: "i1", Name: "unrenderable", Quantity: 1}},
	}}
	f.svc.(*Service).segregator = &stubSegregator{partition: partition}

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "9"}, domain.Options{})
	require.NoError(t, err)

	outcome := result.Outcomes[p1.ID]
	assert.Equal(t, domain.StatusRenderError, outcome.Status)
	assert.Equal(t, 0, outcome.Attempts)
	assert.Zero(t, transport.attemptsFor(p1.ID), "render errors must not reach the transport")
}

func TestUnknownPrinter(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{}, transport)
	ghost := f.node.Generate()
	partition := segregate.Partition{ByPrinter: map[snowflake.ID][]orderdomain.LineInstance{
		ghost: {{InstanceID: "i1", Name: "dish", Quantity: 1}},
	}}
	f.svc.(*Service).segregator = &stubSegregator{partition: partition}

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "10"}, domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnknownPrinter, result.Outcomes[ghost].Status)
	assert.Zero(t, transport.attemptsFor(ghost))
}

func TestInactivePrinterNotSent(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", false)
	f.svc.(*Service).segregator = &stubSegregator{partition: partitionFor(p1)}

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "11"}, domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnknownPrinter, result.Outcomes[p1.ID].Status)
	assert.Zero(t, transport.attemptsFor(p1.ID))
}

func TestPrinterFilterRetriesSubset(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", true)
	p2 := seedEndpoint(t, f, "P2", true)
	f.svc.(*Service).segregator = &stubSegregator{partition: partitionFor(p1, p2)}

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "12"}, domain.Options{
		PrinterFilter: []snowflake.ID{p2.ID},
	})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Contains(t, result.Outcomes, p2.ID)
	assert.Zero(t, transport.attemptsFor(p1.ID))
}

func TestCancellationStopsNewAttempts(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", true)
	f.svc.(*Service).segregator = &stubSegregator{partition: partitionFor(p1)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.Dispatch(ctx, orderdomain.Order{Number: "13"}, domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, result.Outcomes[p1.ID].Status)
	assert.Zero(t, transport.attemptsFor(p1.ID))
}

func TestUnassignedSurfacedInResult(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{
		Unassigned: []orderdomain.LineInstance{{InstanceID: "i1", Name: "soda", Quantity: 1}},
	}, transport)

	result, err := f.svc.Dispatch(context.Background(), orderdomain.Order{Number: "14"}, domain.Options{})
	require.NoError(t, err)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, "i1", result.Unassigned[0].InstanceID)
	assert.False(t, result.AllSucceeded())
}

func TestConcurrentPoolMatchesSequential(t *testing.T) {
	transport := &fakeTransport{}
	f := setup(t, segregate.Partition{}, transport)
	p1 := seedEndpoint(t, f, "P1", true)
	p2 := seedEndpoint(t, f, "P2", true)
	p3 := seedEndpoint(t, f, "P3", true)

	svc := f.svc.(*Service)
	svc.cfg.Concurrency = 3
	svc.segregator = &stubSegregator{partition: partitionFor(p1, p2, p3)}

	result, err := svc.Dispatch(context.Background(), orderdomain.Order{Number: "15"}, domain.Options{})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)
	for _, id := range []snowflake.ID{p1.ID, p2.ID, p3.ID} {
		assert.Equal(t, domain.StatusSuccess, result.Outcomes[id].Status)
	}
}
