package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dydqjadlsp/detailpage/internal/data/repos"
	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/ctxutil"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
	"github.com/dydqjadlsp/detailpage/internal/platform/secrets"
)

const minAPIKeyLength = 10

const (
	msgInvalidAPIKey = "유효하지 않은 API 키입니다"
	msgMissingAPIKey = "마이페이지에서 Gemini API 키를 먼저 등록해주세요"
)

type SettingsView struct {
	HasAPIKey bool    `json:"hasApiKey"`
	MaskedKey *string `json:"maskedKey"`
}

type SettingsService interface {
	Get(ctx context.Context) (*SettingsView, error)
	SaveAPIKey(ctx context.Context, apiKey string) error
	Delete(ctx context.Context) error
	// RequireAPIKey returns the caller's decrypted key, or a validation error
	// telling them to register one.
	RequireAPIKey(ctx context.Context, userID uuid.UUID) (string, error)
}

type settingsService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.UserSettingsRepo
	box  *secrets.Box
}

func NewSettingsService(db *gorm.DB, log *logger.Logger, repo repos.UserSettingsRepo, box *secrets.Box) SettingsService {
	return &settingsService{
		db:   db,
		log:  log.With("service", "SettingsService"),
		repo: repo,
		box:  box,
	}
}

func (s *settingsService) Get(ctx context.Context) (*SettingsView, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return &SettingsView{HasAPIKey: false}, nil
	}
	masked := secrets.Mask(key)
	return &SettingsView{HasAPIKey: true, MaskedKey: &masked}, nil
}

func (s *settingsService) SaveAPIKey(ctx context.Context, apiKey string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) < minAPIKeyLength {
		return apierr.Validation(msgInvalidAPIKey)
	}
	sealed, err := s.box.Seal(apiKey, userID.String())
	if err != nil {
		return apierr.Internal(fmt.Errorf("seal api key: %w", err))
	}
	if err := s.repo.Upsert(dbctx.Context{Ctx: ctx}, &types.UserSettings{
		UserID:       userID,
		GeminiAPIKey: sealed,
	}); err != nil {
		return apierr.Internal(fmt.Errorf("save settings: %w", err))
	}
	s.log.Info("api key saved", "user_id", userID.String())
	return nil
}

func (s *settingsService) Delete(ctx context.Context) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByUserID(dbctx.Context{Ctx: ctx}, userID); err != nil {
		return apierr.Internal(fmt.Errorf("delete settings: %w", err))
	}
	return nil
}

func (s *settingsService) RequireAPIKey(ctx context.Context, userID uuid.UUID) (string, error) {
	key, err := s.apiKey(ctx, userID)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", apierr.Validation(msgMissingAPIKey)
	}
	return key, nil
}

func (s *settingsService) apiKey(ctx context.Context, userID uuid.UUID) (string, error) {
	row, err := s.repo.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return "", apierr.Internal(fmt.Errorf("load settings: %w", err))
	}
	if row == nil || row.GeminiAPIKey == "" {
		return "", nil
	}
	plain, err := s.box.Open(row.GeminiAPIKey, userID.String())
	if err != nil {
		return "", apierr.Internal(fmt.Errorf("open api key: %w", err))
	}
	return plain, nil
}

func requireUser(ctx context.Context) (uuid.UUID, error) {
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("")
	}
	return userID, nil
}
