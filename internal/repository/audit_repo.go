package repository

import (
	"context"

	"github.com/kursadbilgin/number-console/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuditRepository interface {
	Create(ctx context.Context, a *domain.AuditEntry) error
	ListByJobID(ctx context.Context, jobID string) ([]domain.AuditEntry, error)
}

type GormAuditRepo struct {
	db *gorm.DB
}

func NewGormAuditRepo(db *gorm.DB) *GormAuditRepo {
	return &GormAuditRepo{db: db}
}

// Create ignores a duplicate id so redelivered events stay idempotent.
func (r *GormAuditRepo) Create(ctx context.Context, a *domain.AuditEntry) error {
	model := auditEntryModelFromDomain(a)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *auditEntryModelToDomain(model)
	}
	return nil
}

func (r *GormAuditRepo) ListByJobID(ctx context.Context, jobID string) ([]domain.AuditEntry, error) {
	var models []AuditEntryModel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("occurred_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.AuditEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *auditEntryModelToDomain(&models[i]))
	}

	return entries, nil
}
