package repository

import (
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
)

// PhoneNumberModel is the persistence model for the phone_numbers table.
type PhoneNumberModel struct {
	ID               string              `gorm:"type:uuid;primaryKey"`
	E164             string              `gorm:"column:e164;type:varchar(20);not null;uniqueIndex"`
	Status           domain.NumberStatus `gorm:"type:varchar(20);not null;index"`
	AccountID        *string             `gorm:"type:varchar(64)"`
	Carrier          string              `gorm:"type:varchar(64);not null"`
	MonthlyCostCents int64               `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (PhoneNumberModel) TableName() string {
	return "phone_numbers"
}

// BatchJobModel is the persistence model for batch_jobs.
type BatchJobModel struct {
	ID           string             `gorm:"type:uuid;primaryKey"`
	Action       domain.ActionKind  `gorm:"type:varchar(32);not null"`
	Session      string             `gorm:"type:varchar(128);not null"`
	TotalCount   int                `gorm:"not null"`
	SuccessCount int                `gorm:"not null;default:0"`
	FailureCount int                `gorm:"not null;default:0"`
	Status       domain.BatchStatus `gorm:"type:varchar(20);not null"`
	StartedAt    time.Time          `gorm:"type:timestamptz;not null"`
	FinishedAt   *time.Time         `gorm:"type:timestamptz"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (BatchJobModel) TableName() string {
	return "batch_jobs"
}

// AuditEntryModel is the persistence model for batch_audit_entries.
type AuditEntryModel struct {
	ID           string            `gorm:"type:uuid;primaryKey"`
	JobID        string            `gorm:"type:uuid;not null;index"`
	Event        string            `gorm:"type:varchar(32);not null"`
	Action       domain.ActionKind `gorm:"type:varchar(32);not null"`
	Session      string            `gorm:"type:varchar(128);not null"`
	TotalCount   int               `gorm:"not null"`
	SuccessCount int               `gorm:"not null;default:0"`
	FailureCount int               `gorm:"not null;default:0"`
	OccurredAt   time.Time         `gorm:"type:timestamptz;not null"`
	CreatedAt    time.Time
}

func (AuditEntryModel) TableName() string {
	return "batch_audit_entries"
}

func phoneNumberModelToDomain(m *PhoneNumberModel) *domain.PhoneNumber {
	if m == nil {
		return nil
	}

	return &domain.PhoneNumber{
		ID:               m.ID,
		E164:             m.E164,
		Status:           m.Status,
		AccountID:        m.AccountID,
		Carrier:          m.Carrier,
		MonthlyCostCents: m.MonthlyCostCents,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func batchJobModelFromDomain(b *domain.BatchRecord) *BatchJobModel {
	if b == nil {
		return nil
	}

	return &BatchJobModel{
		ID:           b.ID,
		Action:       b.Action,
		Session:      b.Session,
		TotalCount:   b.TotalCount,
		SuccessCount: b.SuccessCount,
		FailureCount: b.FailureCount,
		Status:       b.Status,
		StartedAt:    b.StartedAt,
		FinishedAt:   b.FinishedAt,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func batchJobModelToDomain(m *BatchJobModel) *domain.BatchRecord {
	if m == nil {
		return nil
	}

	return &domain.BatchRecord{
		ID:           m.ID,
		Action:       m.Action,
		Session:      m.Session,
		TotalCount:   m.TotalCount,
		SuccessCount: m.SuccessCount,
		FailureCount: m.FailureCount,
		Status:       m.Status,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func auditEntryModelFromDomain(a *domain.AuditEntry) *AuditEntryModel {
	if a == nil {
		return nil
	}

	return &AuditEntryModel{
		ID:           a.ID,
		JobID:        a.JobID,
		Event:        a.Event,
		Action:       a.Action,
		Session:      a.Session,
		TotalCount:   a.TotalCount,
		SuccessCount: a.SuccessCount,
		FailureCount: a.FailureCount,
		OccurredAt:   a.OccurredAt,
		CreatedAt:    a.CreatedAt,
	}
}

func auditEntryModelToDomain(m *AuditEntryModel) *domain.AuditEntry {
	if m == nil {
		return nil
	}

	return &domain.AuditEntry{
		ID:           m.ID,
		JobID:        m.JobID,
		Event:        m.Event,
		Action:       m.Action,
		Session:      m.Session,
		TotalCount:   m.TotalCount,
		SuccessCount: m.SuccessCount,
		FailureCount: m.FailureCount,
		OccurredAt:   m.OccurredAt,
		CreatedAt:    m.CreatedAt,
	}
}
