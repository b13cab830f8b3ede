package project

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

type GenerationLogRepo interface {
	Create(dbc dbctx.Context, l *types.GenerationLog) error
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.GenerationLog, error)
}

type generationLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationLogRepo(db *gorm.DB, baseLog *logger.Logger) GenerationLogRepo {
	return &generationLogRepo{db: db, log: baseLog.With("repo", "GenerationLogRepo")}
}

func (r *generationLogRepo) Create(dbc dbctx.Context, l *types.GenerationLog) error {
	if l == nil {
		return nil
	}
	return dbc.DB(r.db).Create(l).Error
}

func (r *generationLogRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.GenerationLog, error) {
	results := []*types.GenerationLog{}
	if err := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type VibeSessionRepo interface {
	Create(dbc dbctx.Context, s *types.VibeSession) error
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.VibeSession, error)
}

type vibeSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVibeSessionRepo(db *gorm.DB, baseLog *logger.Logger) VibeSessionRepo {
	return &vibeSessionRepo{db: db, log: baseLog.With("repo", "VibeSessionRepo")}
}

func (r *vibeSessionRepo) Create(dbc dbctx.Context, s *types.VibeSession) error {
	if s == nil {
		return nil
	}
	return dbc.DB(r.db).Create(s).Error
}

func (r *vibeSessionRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.VibeSession, error) {
	results := []*types.VibeSession{}
	if err := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
