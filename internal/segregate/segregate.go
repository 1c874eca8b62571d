package segregate

import (
	"context"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/smallbiznis/printfan/internal/assignment/domain"
	"github.com/smallbiznis/printfan/internal/config"
	"github.com/smallbiznis/printfan/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/printfan/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Partition maps each printer to the line instances it should receive,
// in original order-entry sequence. Lines nothing claimed land in
// Unassigned so the caller can surface them.
type Partition struct {
	ByPrinter  map[snowflake.ID][]orderdomain.LineInstance
	Unassigned []orderdomain.LineInstance
}

func (p Partition) Empty() bool {
	return len(p.ByPrinter) == 0 && len(p.Unassigned) == 0
}

type Segregator interface {
	Segregate(ctx context.Context, order orderdomain.Order) (Partition, error)
}

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Assignments assignmentdomain.Service
}

type Service struct {
	log         *zap.Logger
	metrics     *metrics.Metrics
	assignments assignmentdomain.Service
	fallbackID  snowflake.ID
}

func New(p Params) *Service {
	return &Service{
		log:         p.Log.Named("segregate.service"),
		metrics:     p.Metrics,
		assignments: p.Assignments,
		fallbackID:  snowflake.ID(p.Cfg.FallbackPrinterID),
	}
}

// Segregate routes each line instance independently: item-level
// assignments win over category-level ones, the fallback printer catches
// anything unassigned, and a line matching several printers is copied to
// every one of them.
func (s *Service) Segregate(ctx context.Context, order orderdomain.Order) (Partition, error) {
	partition := Partition{ByPrinter: make(map[snowflake.ID][]orderdomain.LineInstance)}

	for _, line := range order.Lines {
		printers, err := s.printersFor(ctx, line)
		if err != nil {
			return Partition{}, err
		}
		if len(printers) == 0 {
			if s.fallbackID != 0 {
				printers = []snowflake.ID{s.fallbackID}
			} else {
				partition.Unassigned = append(partition.Unassigned, line)
				continue
			}
		}
		for _, printerID := range printers {
			partition.ByPrinter[printerID] = append(partition.ByPrinter[printerID], line)
		}
	}

	if n := len(partition.Unassigned); n > 0 {
		s.metrics.RecordUnassignedLines(ctx, n)
		s.log.Warn("order lines left unassigned",
			zap.String("order_number", order.Number),
			zap.Int("count", n),
		)
	}
	return partition, nil
}

func (s *Service) printersFor(ctx context.Context, line orderdomain.LineInstance) ([]snowflake.ID, error) {
	if line.MenuItemID != "" {
		assignments, err := s.assignments.AssignmentsFor(ctx, assignmentdomain.TargetMenuItem, line.MenuItemID)
		if err != nil {
			return nil, err
		}
		if len(assignments) > 0 {
			return printerIDs(assignments), nil
		}
	}
	if line.CategoryID != "" {
		assignments, err := s.assignments.AssignmentsFor(ctx, assignmentdomain.TargetCategory, line.CategoryID)
		if err != nil {
			return nil, err
		}
		if len(assignments) > 0 {
			return printerIDs(assignments), nil
		}
	}
	return nil, nil
}

func printerIDs(assignments []assignmentdomain.Assignment) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(assignments))
	ids := make([]snowflake.ID, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.PrinterID]; ok {
			continue
		}
		seen[a.PrinterID] = struct{}{}
		ids = append(ids, a.PrinterID)
	}
	return ids
}
