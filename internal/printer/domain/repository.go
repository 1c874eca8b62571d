package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, endpoint *PrinterEndpoint) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PrinterEndpoint, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]PrinterEndpoint, error)
	Update(ctx context.Context, db *gorm.DB, endpoint *PrinterEndpoint) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	// UpdateHealth touches only the health fields so monitor writes never
	// race with user edits of the configuration fields.
	UpdateHealth(ctx context.Context, db *gorm.DB, id snowflake.ID, health HealthState, probedAt time.Time) error
}
