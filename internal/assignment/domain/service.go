package domain

import (
	"context"
	"errors"
)

type AddAssignmentRequest struct {
	PrinterID  string
	TargetKind TargetKind
	TargetID   string
	TargetName string
	Priority   int
}

type Service interface {
	Add(ctx context.Context, req AddAssignmentRequest) (Assignment, error)
	Remove(ctx context.Context, id string) error
	// AssignmentsFor lists the bindings for one target, ordered by
	// priority then id. Priority orders listings only, it never excludes
	// a printer from a match.
	AssignmentsFor(ctx context.Context, kind TargetKind, targetID string) ([]Assignment, error)
	All(ctx context.Context) ([]Assignment, error)
}

var (
	ErrDuplicateAssignment = errors.New("duplicate_assignment")
	ErrUnknownPrinter      = errors.New("unknown_printer")
	ErrInvalidTarget       = errors.New("invalid_target")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
