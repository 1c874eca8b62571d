package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printfan/internal/assignment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, assignment *domain.Assignment) error {
	return db.WithContext(ctx).Create(assignment).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Assignment{})
	return res.RowsAffected, res.Error
}

func (r *repo) FindByTarget(ctx context.Context, db *gorm.DB, kind domain.TargetKind, targetID string) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	err := db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Order("priority asc, id asc").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	err := db.WithContext(ctx).
		Order("priority asc, id asc").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repo) DeleteByPrinter(ctx context.Context, db *gorm.DB, printerID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("printer_id = ?", printerID).Delete(&domain.Assignment{})
	return res.RowsAffected, res.Error
}
