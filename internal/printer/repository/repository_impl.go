package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printfan/internal/printer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, endpoint *domain.PrinterEndpoint) error {
	return db.WithContext(ctx).Create(endpoint).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PrinterEndpoint, error) {
	var endpoint domain.PrinterEndpoint
	err := db.WithContext(ctx).Where("id = ?", id).First(&endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.PrinterEndpoint, error) {
	var endpoints []domain.PrinterEndpoint
	stmt := db.WithContext(ctx).Model(&domain.PrinterEndpoint{})
	if activeOnly {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("created_at asc, id asc").Find(&endpoints).Error; err != nil {
		return nil, err
	}
	return endpoints, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, endpoint *domain.PrinterEndpoint) error {
	return db.WithContext(ctx).Save(endpoint).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.PrinterEndpoint{})
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateHealth(ctx context.Context, db *gorm.DB, id snowflake.ID, health domain.HealthState, probedAt time.Time) error {
	return db.WithContext(ctx).Model(&domain.PrinterEndpoint{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"health":         health,
			"last_probed_at": probedAt,
		}).Error
}
