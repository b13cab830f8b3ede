package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dydqjadlsp/detailpage/internal/data/repos"
	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen/docparse"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

const (
	msgProjectNotFound     = "프로젝트를 찾을 수 없습니다"
	msgProjectFieldsNeeded = "제목과 카테고리는 필수입니다"
	msgInvalidStatus       = "유효하지 않은 상태입니다"
	msgInvalidTitle        = "제목은 비워둘 수 없습니다"
	msgInvalidDocument     = "페이지 데이터 형식이 올바르지 않습니다"
)

type CreateProjectInput struct {
	Title     string
	Category  string
	PuckData  json.RawMessage
	InputData json.RawMessage
}

// UpdateProjectInput carries a partial update; nil fields are left alone.
type UpdateProjectInput struct {
	Title    *string
	PuckData json.RawMessage
	Status   *string
}

// ImageCleaner removes a project's stored images.
type ImageCleaner interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

type ProjectService interface {
	List(ctx context.Context) ([]*types.Project, error)
	Create(ctx context.Context, in CreateProjectInput) (*types.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Project, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateProjectInput) (*types.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Owned loads a project for userID, failing when it is missing or
	// belongs to someone else.
	Owned(ctx context.Context, userID, id uuid.UUID) (*types.Project, error)
}

type projectService struct {
	db       *gorm.DB
	log      *logger.Logger
	projects repos.ProjectRepo
	images   ImageCleaner
}

func NewProjectService(db *gorm.DB, log *logger.Logger, projects repos.ProjectRepo, images ImageCleaner) ProjectService {
	return &projectService{
		db:       db,
		log:      log.With("service", "ProjectService"),
		projects: projects,
		images:   images,
	}
}

func (s *projectService) List(ctx context.Context) ([]*types.Project, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.projects.ListByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list projects: %w", err))
	}
	return rows, nil
}

func (s *projectService) Create(ctx context.Context, in CreateProjectInput) (*types.Project, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	category := strings.TrimSpace(in.Category)
	if title == "" || category == "" {
		return nil, apierr.Validation(msgProjectFieldsNeeded)
	}
	p := &types.Project{
		UserID:   userID,
		Title:    title,
		Category: category,
		Status:   types.ProjectStatusDraft,
	}
	if len(in.PuckData) > 0 && string(in.PuckData) != "null" {
		if err := validateDocument(in.PuckData); err != nil {
			return nil, err
		}
		p.PuckData = datatypes.JSON(in.PuckData)
	}
	if len(in.InputData) > 0 && string(in.InputData) != "null" {
		p.InputData = datatypes.JSON(in.InputData)
	}
	created, err := s.projects.Create(dbctx.Context{Ctx: ctx}, p)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("create project: %w", err))
	}
	return created, nil
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.Owned(ctx, userID, id)
}

func (s *projectService) Owned(ctx context.Context, userID, id uuid.UUID) (*types.Project, error) {
	p, err := s.projects.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load project: %w", err))
	}
	if p == nil {
		return nil, apierr.NotFound(msgProjectNotFound)
	}
	if p.UserID != userID {
		return nil, apierr.Forbidden("")
	}
	return p, nil
}

func (s *projectService) Update(ctx context.Context, id uuid.UUID, in UpdateProjectInput) (*types.Project, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.Owned(ctx, userID, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apierr.Validation(msgInvalidTitle)
		}
		updates["title"] = title
	}
	if in.Status != nil {
		st := types.ProjectStatus(strings.TrimSpace(*in.Status))
		if !st.Valid() {
			return nil, apierr.Validation(msgInvalidStatus)
		}
		updates["status"] = string(st)
	}
	if len(in.PuckData) > 0 {
		if err := validateDocument(in.PuckData); err != nil {
			return nil, err
		}
		updates["puck_data"] = datatypes.JSON(in.PuckData)
	}

	updated, err := s.projects.UpdateFields(dbctx.Context{Ctx: ctx}, id, updates)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("update project: %w", err))
	}
	if updated == nil {
		return nil, apierr.NotFound(msgProjectNotFound)
	}
	return updated, nil
}

func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.Owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.projects.SoftDeleteByID(dbctx.Context{Ctx: ctx}, id); err != nil {
		return apierr.Internal(fmt.Errorf("delete project: %w", err))
	}
	if s.images != nil {
		if err := s.images.DeletePrefix(ctx, id.String()+"/"); err != nil {
			s.log.Warn("project images not removed (ignored)", "project_id", id.String(), "error", err)
		}
	}
	return nil
}

func validateDocument(raw json.RawMessage) error {
	violations, err := docparse.ValidateDocument(raw)
	if err != nil {
		return apierr.Validation(msgInvalidDocument).WithDetails(map[string]any{"reason": err.Error()})
	}
	if len(violations) > 0 {
		return apierr.Validation(msgInvalidDocument).WithDetails(map[string]any{"violations": violations})
	}
	return nil
}
