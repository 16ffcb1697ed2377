package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/number-console/internal/repository"
	"gorm.io/gorm"
)

func createBatchJobsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_batch_jobs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchJobModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_batch_jobs_session_started ON batch_jobs (session, started_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_batch_jobs_running ON batch_jobs (status) WHERE status = 'RUNNING'`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchJobModel{})
		},
	}
}
