package service

import (
	"context"
	"net"
	"strings"

	"github.com/bwmarrin/snowflake"
	assignmentdomain "github.com/smallbiznis/printfan/internal/assignment/domain"
	"github.com/smallbiznis/printfan/internal/clock"
	"github.com/smallbiznis/printfan/internal/printer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	AssignmentRepo assignmentdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	assignmentRepo assignmentdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("printer.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		assignmentRepo: p.AssignmentRepo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterPrinterRequest) (domain.PrinterEndpoint, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.PrinterEndpoint{}, domain.ErrInvalidEndpoint
	}

	transport := req.Transport
	if transport == "" {
		transport = domain.TransportNetwork
	}
	if !transport.Valid() {
		return domain.PrinterEndpoint{}, domain.ErrInvalidEndpoint
	}

	address := strings.TrimSpace(req.Address)
	port := req.Port
	if err := validateAddress(transport, address, port); err != nil {
		return domain.PrinterEndpoint{}, err
	}

	now := s.clock.Now()
	endpoint := domain.PrinterEndpoint{
		ID:        s.genID.Generate(),
		Name:      name,
		Address:   address,
		Port:      port,
		Transport: transport,
		ModelTag:  strings.TrimSpace(req.ModelTag),
		Active:    true,
		Health:    domain.HealthUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &endpoint); err != nil {
		return domain.PrinterEndpoint{}, err
	}

	s.log.Info("printer registered",
		zap.String("printer_id", endpoint.ID.String()),
		zap.String("name", endpoint.Name),
		zap.String("address", endpoint.Address),
		zap.Int("port", endpoint.Port),
	)
	return endpoint, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePrinterRequest) (domain.PrinterEndpoint, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.PrinterEndpoint{}, err
	}

	endpoint, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.PrinterEndpoint{}, err
	}
	if endpoint == nil {
		return domain.PrinterEndpoint{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.PrinterEndpoint{}, domain.ErrInvalidEndpoint
		}
		endpoint.Name = name
	}
	if req.Transport != nil {
		if !req.Transport.Valid() {
			return domain.PrinterEndpoint{}, domain.ErrInvalidEndpoint
		}
		endpoint.Transport = *req.Transport
	}
	if req.Address != nil {
		endpoint.Address = strings.TrimSpace(*req.Address)
	}
	if req.Port != nil {
		endpoint.Port = *req.Port
	}
	if req.ModelTag != nil {
		endpoint.ModelTag = strings.TrimSpace(*req.ModelTag)
	}
	if req.Active != nil {
		endpoint.Active = *req.Active
	}

	if err := validateAddress(endpoint.Transport, endpoint.Address, endpoint.Port); err != nil {
		return domain.PrinterEndpoint{}, err
	}

	endpoint.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, endpoint); err != nil {
		return domain.PrinterEndpoint{}, err
	}
	return *endpoint, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	active := false
	_, err := s.Update(ctx, domain.UpdatePrinterRequest{ID: id, Active: &active})
	return err
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	// Endpoint and its assignments go together or not at all.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.assignmentRepo.DeleteByPrinter(ctx, tx, id); err != nil {
			return err
		}
		affected, err := s.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("printer deleted", zap.String("printer_id", id.String()))
	return nil
}

func (s *Service) Get(ctx context.Context, rawID string) (domain.PrinterEndpoint, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.PrinterEndpoint{}, err
	}
	endpoint, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.PrinterEndpoint{}, err
	}
	if endpoint == nil {
		return domain.PrinterEndpoint{}, domain.ErrNotFound
	}
	return *endpoint, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.PrinterEndpoint, error) {
	return s.repo.List(ctx, s.db, activeOnly)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validateAddress(transport domain.TransportKind, address string, port int) error {
	if address == "" || strings.ContainsAny(address, " \t") {
		return domain.ErrInvalidEndpoint
	}
	if transport == domain.TransportSerial {
		// Serial endpoints carry a device path; port is not meaningful.
		return nil
	}
	if port < 1 || port > 65535 {
		return domain.ErrInvalidEndpoint
	}
	if ip := net.ParseIP(address); ip != nil {
		return nil
	}
	// Hostname: cheap syntactic check, resolution is the dialer's problem.
	for _, label := range strings.Split(address, ".") {
		if label == "" {
			return domain.ErrInvalidEndpoint
		}
	}
	return nil
}
