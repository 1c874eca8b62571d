package healthmon

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printfan/internal/clock"
	"github.com/smallbiznis/printfan/internal/observability/metrics"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config      Config
	DB          *gorm.DB
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Clock       clock.Clock
	PrinterRepo printerdomain.Repository
	Prober      Prober
}

// Monitor keeps every active printer's health column eventually accurate
// without ever blocking a caller.
type Monitor struct {
	cfg         Config
	db          *gorm.DB
	log         *zap.Logger
	metrics     *metrics.Metrics
	clock       clock.Clock
	printerRepo printerdomain.Repository
	prober      Prober

	mu       sync.Mutex
	inFlight map[snowflake.ID]struct{}
}

func New(p Params) *Monitor {
	return &Monitor{
		cfg:         p.Config.withDefaults(),
		db:          p.DB,
		log:         p.Log.Named("healthmon"),
		metrics:     p.Metrics,
		clock:       p.Clock,
		printerRepo: p.PrinterRepo,
		prober:      p.Prober,
	}
}

// RunOnce probes every registered network printer concurrently and writes
// the classifications back. Deactivated printers are probed too, so their
// health is current if they are re-enabled. A printer already being probed
// is skipped rather than probed twice.
func (m *Monitor) RunOnce(ctx context.Context) error {
	endpoints, err := m.printerRepo.List(ctx, m.db, false)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, endpoint := range endpoints {
		if endpoint.Transport != printerdomain.TransportNetwork {
			continue
		}
		if !m.acquire(endpoint.ID) {
			continue
		}
		wg.Add(1)
		go func(endpoint printerdomain.PrinterEndpoint) {
			defer wg.Done()
			defer m.release(endpoint.ID)
			m.probeOne(ctx, endpoint)
		}(endpoint)
	}
	wg.Wait()
	return nil
}

func (m *Monitor) probeOne(ctx context.Context, endpoint printerdomain.PrinterEndpoint) {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	started := time.Now()
	health := m.prober.Probe(probeCtx, endpoint)
	elapsed := time.Since(started)
	m.metrics.RecordProbe(ctx, string(health), elapsed)

	probedAt := m.clock.Now()
	if err := m.printerRepo.UpdateHealth(ctx, m.db, endpoint.ID, health, probedAt); err != nil {
		m.log.Warn("health write failed",
			zap.String("printer_id", endpoint.ID.String()),
			zap.Error(err),
		)
		return
	}

	if health != printerdomain.HealthOnline {
		m.log.Info("printer not reachable",
			zap.String("printer_id", endpoint.ID.String()),
			zap.String("name", endpoint.Name),
			zap.String("health", string(health)),
			zap.Duration("elapsed", elapsed),
		)
	}
}

func (m *Monitor) RunForever(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := m.RunOnce(ctx); err != nil {
			m.log.Warn("health sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) acquire(id snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight == nil {
		m.inFlight = make(map[snowflake.ID]struct{})
	}
	if _, busy := m.inFlight[id]; busy {
		return false
	}
	m.inFlight[id] = struct{}{}
	return true
}

func (m *Monitor) release(id snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, id)
}
