package project

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dydqjadlsp/detailpage/internal/data/repos/testutil"
	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
)

func TestProjectRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProjectRepo(db, testutil.Logger(t))

	owner := uuid.New()
	p := &types.Project{
		UserID:   owner,
		Title:    "Widget",
		Category: "ecommerce",
		Status:   types.ProjectStatusGenerating,
		PuckData: datatypes.JSON([]byte(`{"content":[]}`)),
	}
	created, err := repo.Create(dbc, p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("Create: expected id to be assigned")
	}

	got, err := repo.GetByID(dbc, created.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if got.Status != types.ProjectStatusGenerating {
		t.Fatalf("status: want=%q got=%q", types.ProjectStatusGenerating, got.Status)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): err=%v got=%v", err, missing)
	}

	updated, err := repo.UpdateFields(dbc, created.ID, map[string]interface{}{
		"status":    types.ProjectStatusDraft,
		"puck_data": datatypes.JSON([]byte(`{"content":[{"type":"Hero","props":{"id":"hero-0"}}]}`)),
	})
	if err != nil || updated == nil {
		t.Fatalf("UpdateFields: err=%v got=%v", err, updated)
	}
	if updated.Status != types.ProjectStatusDraft {
		t.Fatalf("UpdateFields status: got=%q", updated.Status)
	}

	if none, err := repo.UpdateFields(dbc, uuid.New(), map[string]interface{}{"title": "x"}); err != nil || none != nil {
		t.Fatalf("UpdateFields(missing): err=%v got=%v", err, none)
	}

	if err := repo.SoftDeleteByID(dbc, created.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	if gone, err := repo.GetByID(dbc, created.ID); err != nil || gone != nil {
		t.Fatalf("GetByID after delete: err=%v got=%v", err, gone)
	}
}

func TestProjectRepoListOrdersByUpdatedAt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProjectRepo(db, testutil.Logger(t))

	owner := uuid.New()
	older := testutil.SeedProject(t, ctx, tx, owner, "older")
	newer := testutil.SeedProject(t, ctx, tx, owner, "newer")
	testutil.SeedProject(t, ctx, tx, uuid.New(), "someone else")

	past := time.Now().UTC().Add(-time.Hour)
	if err := tx.Model(&types.Project{}).Where("id = ?", older.ID).UpdateColumn("updated_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	rows, err := repo.ListByUserID(dbc, owner)
	if err != nil {
		t.Fatalf("ListByUserID: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListByUserID: want=2 got=%d", len(rows))
	}
	if rows[0].ID != newer.ID || rows[1].ID != older.ID {
		t.Fatalf("order: got=[%s %s]", rows[0].Title, rows[1].Title)
	}
}
