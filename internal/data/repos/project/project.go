package project

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, p *types.Project) (*types.Project, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error)
	ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Project, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (*types.Project, error)
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	repoLog := baseLog.With("repo", "ProjectRepo")
	return &projectRepo{db: db, log: repoLog}
}

func (r *projectRepo) Create(dbc dbctx.Context, p *types.Project) (*types.Project, error) {
	if p == nil {
		return nil, errors.New("nil project")
	}
	if err := dbc.DB(r.db).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID returns nil, nil when the project does not exist.
func (r *projectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error) {
	var results []*types.Project
	if id == uuid.Nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *projectRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Project, error) {
	results := []*types.Project{}
	if userID == uuid.Nil {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateFields applies a partial update and returns the fresh row, or nil
// when the project does not exist.
func (r *projectRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (*types.Project, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	transaction := dbc.DB(r.db)
	if len(updates) > 0 {
		res := transaction.Model(&types.Project{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
	}
	return r.GetByID(dbc, id)
}

func (r *projectRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Project{}).Error
}
