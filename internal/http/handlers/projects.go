package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dydqjadlsp/detailpage/internal/domain"
	"github.com/dydqjadlsp/detailpage/internal/http/response"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
	"github.com/dydqjadlsp/detailpage/internal/services"
)

const msgProjectNotFound = "프로젝트를 찾을 수 없습니다"

type ProjectHandler struct {
	log      *logger.Logger
	projects services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projects services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		log:      log.With("handler", "ProjectHandler"),
		projects: projects,
	}
}

type projectSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Status       string    `json:"status"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type projectDetail struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Title        string          `json:"title"`
	Category     string          `json:"category"`
	Status       string          `json:"status"`
	PuckData     json.RawMessage `json:"puckData"`
	InputData    json.RawMessage `json:"inputData"`
	ThumbnailURL *string         `json:"thumbnailUrl"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

func toSummary(p *domain.Project) projectSummary {
	return projectSummary{
		ID:           p.ID.String(),
		Title:        p.Title,
		Category:     p.Category,
		Status:       string(p.Status),
		ThumbnailURL: optionalString(p.ThumbnailURL),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toDetail(p *domain.Project) projectDetail {
	return projectDetail{
		ID:           p.ID.String(),
		UserID:       p.UserID.String(),
		Title:        p.Title,
		Category:     p.Category,
		Status:       string(p.Status),
		PuckData:     rawOrNull(p.PuckData),
		InputData:    rawOrNull(p.InputData),
		ThumbnailURL: optionalString(p.ThumbnailURL),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	list, err := h.projects.List(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	out := make([]projectSummary, 0, len(list))
	for _, p := range list {
		out = append(out, toSummary(p))
	}
	response.RespondOK(c, gin.H{"projects": out, "total": len(out)})
}

// POST /api/projects
// body: { "title": "...", "category": "...", "puckData"?: {...}, "inputData"?: {...} }
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Title     string          `json:"title"`
		Category  string          `json:"category"`
		PuckData  json.RawMessage `json:"puckData"`
		InputData json.RawMessage `json:"inputData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Validation("제목과 카테고리는 필수입니다"))
		return
	}
	if isJSONNull(req.PuckData) {
		req.PuckData = nil
	}
	if isJSONNull(req.InputData) {
		req.InputData = nil
	}
	p, err := h.projects.Create(c.Request.Context(), services.CreateProjectInput{
		Title:     req.Title,
		Category:  req.Category,
		PuckData:  req.PuckData,
		InputData: req.InputData,
	})
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"id":       p.ID.String(),
		"title":    p.Title,
		"category": p.Category,
		"status":   string(p.Status),
	})
}

// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		response.RespondAPIError(c, h.log, apierr.NotFound(msgProjectNotFound))
		return
	}
	p, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, toDetail(p))
}

// PUT /api/projects/:id
// body: { "title"?: "...", "puckData"?: {...}, "status"?: "draft" | "published" | "generating" }
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		response.RespondAPIError(c, h.log, apierr.NotFound(msgProjectNotFound))
		return
	}
	var req struct {
		Title    *string         `json:"title"`
		PuckData json.RawMessage `json:"puckData"`
		Status   *string         `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Validation("요청 형식이 올바르지 않습니다"))
		return
	}
	if isJSONNull(req.PuckData) {
		req.PuckData = nil
	}
	p, err := h.projects.Update(c.Request.Context(), id, services.UpdateProjectInput{
		Title:    req.Title,
		PuckData: req.PuckData,
		Status:   req.Status,
	})
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"id":        p.ID.String(),
		"title":     p.Title,
		"status":    string(p.Status),
		"updatedAt": p.UpdatedAt,
	})
}

// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		response.RespondAPIError(c, h.log, apierr.NotFound(msgProjectNotFound))
		return
	}
	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
