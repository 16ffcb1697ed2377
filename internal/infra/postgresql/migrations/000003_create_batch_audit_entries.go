package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/number-console/internal/repository"
	"gorm.io/gorm"
)

func createBatchAuditEntriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_batch_audit_entries",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.AuditEntryModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AuditEntryModel{})
		},
	}
}
