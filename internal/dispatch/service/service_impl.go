package service

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/printfan/internal/clock"
	"github.com/smallbiznis/printfan/internal/config"
	"github.com/smallbiznis/printfan/internal/dispatch/domain"
	"github.com/smallbiznis/printfan/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/printfan/internal/order/domain"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
	"github.com/smallbiznis/printfan/internal/segregate"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config bounds every send. Zero values fall back to conservative
// defaults suitable for cheap thermal printers.
type Config struct {
	SendTimeout       time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	InterPrinterDelay time.Duration
	Concurrency       int
}

func (c Config) withDefaults() Config {
	if c.SendTimeout <= 0 {
		c.SendTimeout = 12 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		SendTimeout:       cfg.DispatchSendTimeout,
		MaxAttempts:       cfg.DispatchMaxAttempts,
		RetryDelay:        cfg.DispatchRetryDelay,
		InterPrinterDelay: cfg.DispatchInterPrinterDelay,
		Concurrency:       cfg.DispatchConcurrency,
	}
}

type Params struct {
	fx.In

	Cfg         Config
	DB          *gorm.DB
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Clock       clock.Clock
	PrinterRepo printerdomain.Repository
	Segregator  segregate.Segregator
	Renderer    domain.Renderer
	Transport   domain.Transport
}

type Service struct {
	cfg         Config
	db          *gorm.DB
	log         *zap.Logger
	metrics     *metrics.Metrics
	clock       clock.Clock
	printerRepo printerdomain.Repository
	segregator  segregate.Segregator
	renderer    domain.Renderer
	transport   domain.Transport
}

func New(p Params) domain.Service {
	return &Service{
		cfg:         p.Cfg.withDefaults(),
		db:          p.DB,
		log:         p.Log.Named("dispatch.service"),
		metrics:     p.Metrics,
		clock:       p.Clock,
		printerRepo: p.PrinterRepo,
		segregator:  p.Segregator,
		renderer:    p.Renderer,
		transport:   p.Transport,
	}
}

func (s *Service) Dispatch(ctx context.Context, order orderdomain.Order, opts domain.Options) (domain.Result, error) {
	runID := uuid.New()
	result := domain.Result{
		RunID:    runID,
		Outcomes: make(map[snowflake.ID]domain.Outcome),
	}

	partition, err := s.segregator.Segregate(ctx, order)
	if err != nil {
		return domain.Result{}, err
	}
	result.Unassigned = partition.Unassigned

	targets := targetIDs(partition, opts.PrinterFilter)
	if len(targets) == 0 {
		return result, nil
	}

	log := s.log.With(
		zap.String("run_id", runID.String()),
		zap.String("order_number", order.Number),
	)
	log.Info("dispatching order", zap.Int("printers", len(targets)))

	if s.cfg.Concurrency > 1 {
		s.runPool(ctx, log, order, partition, targets, result.Outcomes)
	} else {
		s.runSequential(ctx, log, order, partition, targets, result.Outcomes)
	}

	for _, outcome := range result.Outcomes {
		s.metrics.RecordDispatchJob(ctx, string(outcome.Status))
	}
	return result, nil
}

func (s *Service) runSequential(ctx context.Context, log *zap.Logger, order orderdomain.Order, partition segregate.Partition, targets []snowflake.ID, outcomes map[snowflake.ID]domain.Outcome) {
	for i, printerID := range targets {
		if i > 0 && s.cfg.InterPrinterDelay > 0 {
			s.clock.Sleep(ctx, s.cfg.InterPrinterDelay)
		}
		outcomes[printerID] = s.sendOne(ctx, log, order, printerID, partition.ByPrinter[printerID])
	}
}

func (s *Service) runPool(ctx context.Context, log *zap.Logger, order orderdomain.Order, partition segregate.Partition, targets []snowflake.ID, outcomes map[snowflake.ID]domain.Outcome) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.Concurrency)
	)
	for _, printerID := range targets {
		printerID := printerID
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcome := s.sendOne(ctx, log, order, printerID, partition.ByPrinter[printerID])
			mu.Lock()
			outcomes[printerID] = outcome
			mu.Unlock()
		}()
	}
	wg.Wait()
}

// sendOne drives one printer through render, transmit, and retry. Every
// failure is captured in the outcome, never propagated, so a stuck
// printer cannot take the rest of the order down with it.
func (s *Service) sendOne(ctx context.Context, log *zap.Logger, order orderdomain.Order, printerID snowflake.ID, lines []orderdomain.LineInstance) domain.Outcome {
	started := s.clock.Now()
	outcome := domain.Outcome{PrinterID: printerID}

	finish := func(status domain.OutcomeStatus, lastErr error) domain.Outcome {
		outcome.Status = status
		outcome.Duration = s.clock.Now().Sub(started)
		if lastErr != nil {
			outcome.LastError = lastErr.Error()
		}
		if status.Success() {
			log.Info("printer send succeeded",
				zap.String("printer_id", printerID.String()),
				zap.Int("attempts", outcome.Attempts),
			)
		} else {
			log.Warn("printer send failed",
				zap.String("printer_id", printerID.String()),
				zap.String("status", string(status)),
				zap.Int("attempts", outcome.Attempts),
				zap.String("last_error", outcome.LastError),
			)
		}
		return outcome
	}

	if ctx.Err() != nil {
		return finish(domain.StatusCanceled, ctx.Err())
	}

	endpoint, err := s.printerRepo.FindByID(ctx, s.db, printerID)
	if err != nil {
		return finish(domain.StatusUnknownPrinter, err)
	}
	if endpoint == nil {
		return finish(domain.StatusUnknownPrinter, errors.New("printer not found"))
	}
	outcome.PrinterName = endpoint.Name
	if !endpoint.Active {
		return finish(domain.StatusUnknownPrinter, errors.New("printer inactive"))
	}

	payload, err := s.renderer.Render(order, lines, endpoint.ModelTag)
	if err != nil {
		return finish(domain.StatusRenderError, err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return finish(domain.StatusCanceled, ctx.Err())
		}
		outcome.Attempts = attempt

		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err := s.transport.Send(sendCtx, *endpoint, payload)
		cancel()

		if err == nil {
			s.metrics.RecordDispatchAttempt(ctx, string(domain.StatusSuccess))
			return finish(domain.StatusSuccess, nil)
		}

		status := classify(ctx, err)
		s.metrics.RecordDispatchAttempt(ctx, string(status))
		if status == domain.StatusCanceled {
			return finish(status, err)
		}
		lastErr = err

		if attempt < s.cfg.MaxAttempts {
			// Linear backoff gives a busy printer time to finish cutting.
			s.clock.Sleep(ctx, time.Duration(attempt)*s.cfg.RetryDelay)
		}
	}
	return finish(classify(ctx, lastErr), lastErr)
}

// classify maps a transport error to its outcome status. The caller's
// own cancellation wins over the per-attempt deadline.
func classify(ctx context.Context, err error) domain.OutcomeStatus {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return domain.StatusCanceled
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.StatusTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return domain.StatusConnectionRefused
	}
	return domain.StatusSendError
}

func targetIDs(partition segregate.Partition, filter []snowflake.ID) []snowflake.ID {
	var allowed map[snowflake.ID]struct{}
	if len(filter) > 0 {
		allowed = make(map[snowflake.ID]struct{}, len(filter))
		for _, id := range filter {
			allowed[id] = struct{}{}
		}
	}

	ids := make([]snowflake.ID, 0, len(partition.ByPrinter))
	for id := range partition.ByPrinter {
		if allowed != nil {
			if _, ok := allowed[id]; !ok {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
