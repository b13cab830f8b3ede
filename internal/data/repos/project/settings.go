package project

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

type UserSettingsRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserSettings, error)
	Upsert(dbc dbctx.Context, s *types.UserSettings) error
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type userSettingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserSettingsRepo(db *gorm.DB, baseLog *logger.Logger) UserSettingsRepo {
	repoLog := baseLog.With("repo", "UserSettingsRepo")
	return &userSettingsRepo{db: db, log: repoLog}
}

func (r *userSettingsRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserSettings, error) {
	var results []*types.UserSettings
	if userID == uuid.Nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// Upsert inserts or replaces the settings row keyed by user_id.
func (r *userSettingsRepo) Upsert(dbc dbctx.Context, s *types.UserSettings) error {
	if s == nil || s.UserID == uuid.Nil {
		return nil
	}
	s.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"gemini_api_key", "updated_at"}),
	}).Create(s).Error
}

func (r *userSettingsRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("user_id = ?", userID).Delete(&types.UserSettings{}).Error
}
