package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/number-console/internal/repository"
	"gorm.io/gorm"
)

func createPhoneNumbersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_phone_numbers",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PhoneNumberModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_phone_numbers_status_e164 ON phone_numbers (status, e164)`,
				`CREATE INDEX IF NOT EXISTS idx_phone_numbers_account_id ON phone_numbers (account_id) WHERE account_id IS NOT NULL`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PhoneNumberModel{})
		},
	}
}
