package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dydqjadlsp/detailpage/internal/data/repos"
	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/gemini"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

const (
	msgGenerateFieldsNeeded = "카테고리와 입력 데이터는 필수입니다"
	msgVibeFieldsNeeded     = "프로젝트 ID, 메시지, 현재 데이터가 필요합니다"
	msgNoProjectAccess      = "프로젝트에 대한 권한이 없습니다"
	msgEmptyText            = "텍스트 생성 결과가 비어 있습니다"
	msgTextFailed           = "AI 텍스트 생성에 실패했습니다"
	msgParseFailed          = "AI 응답 파싱에 실패했습니다"
	msgVibeParseFailed      = "AI 응답을 파싱할 수 없습니다"
)

type GenerateInput struct {
	Category    string
	Inputs      page.Inputs
	PixelHeight string
}

type ModifyInput struct {
	ProjectID       uuid.UUID
	Message         string
	CurrentPuckData json.RawMessage
}

// Generator is the pipeline as seen by the service.
type Generator interface {
	Run(ctx context.Context, req pagegen.Request) (*pagegen.Result, error)
	Modify(ctx context.Context, req pagegen.ModifyRequest) (*pagegen.ModifyResult, error)
}

type GenerationService interface {
	Generate(ctx context.Context, in GenerateInput) (*pagegen.Result, error)
	Modify(ctx context.Context, in ModifyInput) (*pagegen.ModifyResult, error)
}

type generationService struct {
	log       *logger.Logger
	generator Generator
	settings  SettingsService
	projects  repos.ProjectRepo
}

func NewGenerationService(log *logger.Logger, generator Generator, settings SettingsService, projects repos.ProjectRepo) GenerationService {
	return &generationService{
		log:       log.With("service", "GenerationService"),
		generator: generator,
		settings:  settings,
		projects:  projects,
	}
}

func (s *generationService) Generate(ctx context.Context, in GenerateInput) (*pagegen.Result, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" || in.Inputs == nil {
		return nil, apierr.Validation(msgGenerateFieldsNeeded)
	}
	apiKey, err := s.settings.RequireAPIKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	res, err := s.generator.Run(ctx, pagegen.Request{
		UserID:      userID,
		APIKey:      apiKey,
		Category:    category,
		Inputs:      in.Inputs,
		PixelHeight: in.PixelHeight,
	})
	if err != nil {
		return nil, classifyPipelineError(err, msgParseFailed)
	}
	return res, nil
}

func (s *generationService) Modify(ctx context.Context, in ModifyInput) (*pagegen.ModifyResult, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	current := strings.TrimSpace(string(in.CurrentPuckData))
	if in.ProjectID == uuid.Nil || strings.TrimSpace(in.Message) == "" || current == "" || current == "null" {
		return nil, apierr.Validation(msgVibeFieldsNeeded)
	}
	p, err := s.projects.GetByID(dbctx.Context{Ctx: ctx}, in.ProjectID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load project: %w", err))
	}
	if p == nil || p.UserID != userID {
		return nil, apierr.Unauthorized(msgNoProjectAccess)
	}
	if err := validateDocument(in.CurrentPuckData); err != nil {
		return nil, err
	}
	apiKey, err := s.settings.RequireAPIKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	res, err := s.generator.Modify(ctx, pagegen.ModifyRequest{
		UserID:    userID,
		ProjectID: in.ProjectID,
		APIKey:    apiKey,
		Message:   in.Message,
		Current:   in.CurrentPuckData,
	})
	if err != nil {
		return nil, classifyPipelineError(err, msgVibeParseFailed)
	}
	return res, nil
}

// classifyPipelineError maps pipeline failures onto caller-facing errors.
// Provider messages are kept as the cause and never shown to the caller.
func classifyPipelineError(err error, parseMsg string) error {
	switch {
	case errors.Is(err, pagegen.ErrTextGeneration) && errors.Is(err, gemini.ErrEmptyResponse):
		return apierr.ExternalAPI(msgEmptyText, err)
	case errors.Is(err, pagegen.ErrTextGeneration):
		var pe *gemini.ProviderError
		if errors.As(err, &pe) && pe.HTTPStatusCode() == http.StatusTooManyRequests {
			rl := apierr.RateLimit("")
			rl.Err = err
			return rl
		}
		return apierr.ExternalAPI(msgTextFailed, err)
	case errors.Is(err, pagegen.ErrParse):
		return apierr.ExternalAPI(parseMsg, err)
	case errors.Is(err, pagegen.ErrPersistence):
		return apierr.Internal(err)
	default:
		return apierr.From(err)
	}
}
