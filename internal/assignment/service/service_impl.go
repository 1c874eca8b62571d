package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printfan/internal/assignment/domain"
	"github.com/smallbiznis/printfan/internal/clock"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
	"github.com/smallbiznis/printfan/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	PrinterRepo printerdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	printerRepo printerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("assignment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		printerRepo: p.PrinterRepo,
	}
}

func (s *Service) Add(ctx context.Context, req domain.AddAssignmentRequest) (domain.Assignment, error) {
	printerID, err := snowflake.ParseString(strings.TrimSpace(req.PrinterID))
	if err != nil || printerID == 0 {
		return domain.Assignment{}, domain.ErrInvalidID
	}
	if !req.TargetKind.Valid() {
		return domain.Assignment{}, domain.ErrInvalidTarget
	}
	targetID := strings.TrimSpace(req.TargetID)
	if targetID == "" {
		return domain.Assignment{}, domain.ErrInvalidTarget
	}

	now := s.clock.Now()
	assignment := domain.Assignment{
		ID:         s.genID.Generate(),
		PrinterID:  printerID,
		TargetKind: req.TargetKind,
		TargetID:   targetID,
		TargetName: strings.TrimSpace(req.TargetName),
		Priority:   req.Priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Check and insert in one transaction so an Add racing a printer
	// delete cannot commit an assignment the cascade already missed.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		endpoint, err := s.printerRepo.FindByID(ctx, tx, printerID)
		if err != nil {
			return err
		}
		if endpoint == nil {
			return domain.ErrUnknownPrinter
		}
		return s.repo.Insert(ctx, tx, &assignment)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Assignment{}, domain.ErrDuplicateAssignment
		}
		return domain.Assignment{}, err
	}

	s.log.Info("assignment added",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("printer_id", printerID.String()),
		zap.String("target_kind", string(req.TargetKind)),
		zap.String("target_id", targetID),
	)
	return assignment, nil
}

func (s *Service) Remove(ctx context.Context, rawID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.ErrInvalidID
	}
	affected, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("assignment removed", zap.String("assignment_id", id.String()))
	return nil
}

func (s *Service) AssignmentsFor(ctx context.Context, kind domain.TargetKind, targetID string) ([]domain.Assignment, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidTarget
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, domain.ErrInvalidTarget
	}
	return s.repo.FindByTarget(ctx, s.db, kind, targetID)
}

func (s *Service) All(ctx context.Context) ([]domain.Assignment, error) {
	return s.repo.FindAll(ctx, s.db)
}
