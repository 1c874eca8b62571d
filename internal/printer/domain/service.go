package domain

import (
	"context"
	"errors"
)

type RegisterPrinterRequest struct {
	Name      string
	Address   string
	Port      int
	Transport TransportKind
	ModelTag  string
}

// UpdatePrinterRequest carries a partial update; nil fields are left as is.
// Health fields are owned by the health monitor and not updatable here.
type UpdatePrinterRequest struct {
	ID        string
	Name      *string
	Address   *string
	Port      *int
	Transport *TransportKind
	ModelTag  *string
	Active    *bool
}

type Service interface {
	Register(ctx context.Context, req RegisterPrinterRequest) (PrinterEndpoint, error)
	Update(ctx context.Context, req UpdatePrinterRequest) (PrinterEndpoint, error)
	Deactivate(ctx context.Context, id string) error
	// Delete removes the endpoint and every assignment referencing it as
	// one transaction.
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (PrinterEndpoint, error)
	List(ctx context.Context, activeOnly bool) ([]PrinterEndpoint, error)
}

var (
	ErrInvalidEndpoint = errors.New("invalid_endpoint")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
