package db

import (
	"fmt"

	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Project{},
		&types.UserSettings{},
		&types.GenerationLog{},
		&types.VibeSession{},
	)
}

// EnsureProjectIndexes adds Postgres-only indexes AutoMigrate cannot express.
func EnsureProjectIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_status_generating
		ON projects (updated_at)
		WHERE status = 'generating' AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_projects_status_generating: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_generation_logs_user_created
		ON generation_logs (user_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_generation_logs_user_created: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureProjectIndexes(s.db); err != nil {
		s.log.Error("Project index migration failed", "error", err)
		return err
	}
	return nil
}
