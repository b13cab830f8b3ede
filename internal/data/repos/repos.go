package repos

import (
	"gorm.io/gorm"

	"github.com/dydqjadlsp/detailpage/internal/data/repos/project"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

type ProjectRepo = project.ProjectRepo
type UserSettingsRepo = project.UserSettingsRepo
type GenerationLogRepo = project.GenerationLogRepo
type VibeSessionRepo = project.VibeSessionRepo

func NewProjectRepo(db *gorm.DB, log *logger.Logger) ProjectRepo {
	return project.NewProjectRepo(db, log)
}

func NewUserSettingsRepo(db *gorm.DB, log *logger.Logger) UserSettingsRepo {
	return project.NewUserSettingsRepo(db, log)
}

func NewGenerationLogRepo(db *gorm.DB, log *logger.Logger) GenerationLogRepo {
	return project.NewGenerationLogRepo(db, log)
}

func NewVibeSessionRepo(db *gorm.DB, log *logger.Logger) VibeSessionRepo {
	return project.NewVibeSessionRepo(db, log)
}
