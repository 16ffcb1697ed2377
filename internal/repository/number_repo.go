package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/number-console/internal/domain"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type ListParams struct {
	Status   *domain.NumberStatus
	Page     int
	PageSize int
}

// Normalize clamps paging to the supported window.
func (p ListParams) Normalize() ListParams {
	p.Page = max(p.Page, 1)
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	p.PageSize = min(p.PageSize, maxPageSize)
	return p
}

type NumberRepository interface {
	List(ctx context.Context, params ListParams) ([]domain.PhoneNumber, int64, error)
	GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error)
	UpdateStatus(ctx context.Context, id string, status domain.NumberStatus, accountID *string) error
	Delete(ctx context.Context, id string) error
}

type GormNumberRepo struct {
	db *gorm.DB
}

func NewGormNumberRepo(db *gorm.DB) *GormNumberRepo {
	return &GormNumberRepo{db: db}
}

func (r *GormNumberRepo) List(ctx context.Context, params ListParams) ([]domain.PhoneNumber, int64, error) {
	params = params.Normalize()
	query := r.db.WithContext(ctx).Model(&PhoneNumberModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []PhoneNumberModel
	err := query.
		Order("e164 ASC").
		Offset((params.Page - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	numbers := make([]domain.PhoneNumber, 0, len(models))
	for i := range models {
		numbers = append(numbers, *phoneNumberModelToDomain(&models[i]))
	}

	return numbers, total, nil
}

func (r *GormNumberRepo) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	var model PhoneNumberModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return phoneNumberModelToDomain(&model), nil
}

// UpdateStatus mirrors a carrier side change into the local pool.
func (r *GormNumberRepo) UpdateStatus(ctx context.Context, id string, status domain.NumberStatus, accountID *string) error {
	result := r.db.WithContext(ctx).
		Model(&PhoneNumberModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"account_id": accountID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormNumberRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&PhoneNumberModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
