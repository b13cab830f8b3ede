package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/dydqjadlsp/detailpage/internal/http/response"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
	"github.com/dydqjadlsp/detailpage/internal/services"
)

type SettingsHandler struct {
	log      *logger.Logger
	settings services.SettingsService
}

func NewSettingsHandler(log *logger.Logger, settings services.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		log:      log.With("handler", "SettingsHandler"),
		settings: settings,
	}
}

// GET /api/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	view, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/settings
// body: { "apiKey": "..." }
func (h *SettingsHandler) Save(c *gin.Context) {
	var req struct {
		APIKey json.RawMessage `json:"apiKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Validation("유효하지 않은 API 키입니다"))
		return
	}
	var key string
	if err := json.Unmarshal(req.APIKey, &key); err != nil {
		response.RespondAPIError(c, h.log, apierr.Validation("유효하지 않은 API 키입니다"))
		return
	}
	if err := h.settings.SaveAPIKey(c.Request.Context(), key); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}

// DELETE /api/settings
func (h *SettingsHandler) Delete(c *gin.Context) {
	if err := h.settings.Delete(c.Request.Context()); err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}
