package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
	"gorm.io/gorm"
)

type BatchRepository interface {
	Create(ctx context.Context, b *domain.BatchRecord) error
	GetByID(ctx context.Context, id string) (*domain.BatchRecord, error)
	Complete(ctx context.Context, id string, summary domain.BatchSummary, finishedAt time.Time) error
	MarkInterrupted(ctx context.Context, startedBefore time.Time) (int64, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) Create(ctx context.Context, b *domain.BatchRecord) error {
	model := batchJobModelFromDomain(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if b != nil {
		*b = *batchJobModelToDomain(model)
	}
	return nil
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.BatchRecord, error) {
	var model BatchJobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchJobModelToDomain(&model), nil
}

// Complete stores the final counts. Only a RUNNING row can be completed.
func (r *GormBatchRepo) Complete(ctx context.Context, id string, summary domain.BatchSummary, finishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&BatchJobModel{}).
		Where("id = ? AND status = ?", id, domain.BatchStatusRunning).
		Updates(map[string]any{
			"status":        summary.Status(),
			"success_count": summary.SuccessCount,
			"failure_count": summary.FailureCount,
			"finished_at":   finishedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// MarkInterrupted closes every RUNNING row started before startedBefore and
// returns how many rows it changed.
func (r *GormBatchRepo) MarkInterrupted(ctx context.Context, startedBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&BatchJobModel{}).
		Where("status = ? AND started_at < ?", domain.BatchStatusRunning, startedBefore).
		Updates(map[string]any{
			"status":      domain.BatchStatusInterrupted,
			"finished_at": startedBefore,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
