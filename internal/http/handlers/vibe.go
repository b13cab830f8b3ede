package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dydqjadlsp/detailpage/internal/http/response"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/services"
)

// POST /api/vibe
// body: { "projectId": "...", "message": "...", "currentPuckData": { ... } }
func (h *GenerationHandler) Vibe(c *gin.Context) {
	var req struct {
		ProjectID       string          `json:"projectId"`
		Message         string          `json:"message"`
		CurrentPuckData json.RawMessage `json:"currentPuckData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Validation(msgVibeFieldsNeeded))
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		response.RespondAPIError(c, h.log, apierr.Validation(msgVibeFieldsNeeded))
		return
	}
	if isJSONNull(req.CurrentPuckData) {
		req.CurrentPuckData = nil
	}

	res, err := h.generation.Modify(c.Request.Context(), services.ModifyInput{
		ProjectID:       projectID,
		Message:         req.Message,
		CurrentPuckData: req.CurrentPuckData,
	})
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
