package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/dydqjadlsp/detailpage/internal/domain"
)

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    title,
		Category: "ecommerce",
		Status:   types.ProjectStatusDraft,
		PuckData: datatypes.JSON([]byte(`{"content":[],"root":{"props":{"title":"t"}}}`)),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}
