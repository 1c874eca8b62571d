package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, assignment *Assignment) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByTarget(ctx context.Context, db *gorm.DB, kind TargetKind, targetID string) ([]Assignment, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]Assignment, error)
	// DeleteByPrinter removes every binding for the printer and reports
	// how many rows went away. Used inside the printer delete transaction.
	DeleteByPrinter(ctx context.Context, db *gorm.DB, printerID snowflake.ID) (int64, error)
}
