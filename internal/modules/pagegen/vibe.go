package pagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen/docparse"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen/prompts"
	"github.com/dydqjadlsp/detailpage/internal/pkg/dbctx"
)

const DefaultChangesSummary = "수정 완료"

type ModifyRequest struct {
	UserID    uuid.UUID
	ProjectID uuid.UUID
	APIKey    string
	Message   string
	Current   json.RawMessage
}

type ModifyResult struct {
	UpdatedPuckData page.Document `json:"updatedPuckData"`
	ChangesSummary  string        `json:"changesSummary"`
}

type modifyOutput struct {
	PuckData       json.RawMessage `json:"puckData"`
	ChangesSummary string          `json:"changes_summary"`
}

// Modify asks the model to revise the current document and records the
// exchange. The returned document goes through the same repair as a fresh
// generation. Ownership is the caller's concern.
func (p *Pipeline) Modify(ctx context.Context, req ModifyRequest) (*ModifyResult, error) {
	if p.deps.Gemini == nil {
		return nil, fmt.Errorf("pagegen: missing deps")
	}
	log := p.log.With("project_id", req.ProjectID.String(), "user_id", req.UserID.String())

	prompt, err := prompts.Vibe(req.Message, req.Current)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	text, err := p.deps.Gemini.GenerateText(ctx, req.APIKey, p.cfg.VibeModel, prompt)
	if err != nil {
		log.Warn("modification text generation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTextGeneration, err)
	}

	obj, err := docparse.Extract(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	var out modifyOutput
	if err := json.Unmarshal(obj, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, &docparse.ParseError{Reason: "malformed json", Err: err})
	}
	if len(out.PuckData) == 0 || string(out.PuckData) == "null" {
		return nil, fmt.Errorf("%w: %w", ErrParse, &docparse.ParseError{Reason: "missing puckData"})
	}
	doc, err := docparse.Decode(out.PuckData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if p.deps.VibeSessions != nil {
		raw, err := json.Marshal(doc)
		if err != nil {
			raw = []byte("{}")
		}
		if err := p.deps.VibeSessions.Create(dbctx.Context{Ctx: ctx}, &types.VibeSession{
			ProjectID:      req.ProjectID,
			UserID:         req.UserID,
			Message:        req.Message,
			Response:       out.ChangesSummary,
			ChangesApplied: datatypes.JSON(raw),
		}); err != nil {
			log.Warn("vibe session not written", "error", err)
		}
	}

	summary := strings.TrimSpace(out.ChangesSummary)
	if summary == "" {
		summary = DefaultChangesSummary
	}
	log.Info("modification applied", "blocks", len(doc.Content))
	return &ModifyResult{UpdatedPuckData: doc, ChangesSummary: summary}, nil
}
