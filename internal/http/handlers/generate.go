package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	"github.com/dydqjadlsp/detailpage/internal/http/response"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
	"github.com/dydqjadlsp/detailpage/internal/services"
)

const (
	msgGenerateFieldsNeeded = "카테고리와 입력 데이터는 필수입니다"
	msgVibeFieldsNeeded     = "프로젝트 ID, 메시지, 현재 데이터가 필요합니다"
	defaultPixelHeight      = "8000"
)

type GenerationHandler struct {
	log        *logger.Logger
	generation services.GenerationService
}

func NewGenerationHandler(log *logger.Logger, generation services.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		log:        log.With("handler", "GenerationHandler"),
		generation: generation,
	}
}

// POST /api/generate
// body: { "category": "...", "inputData": { ... }, "pixelHeight": "8000" }
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req struct {
		Category    string      `json:"category"`
		InputData   page.Inputs `json:"inputData"`
		PixelHeight looseString `json:"pixelHeight"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, h.log, apierr.Validation(msgGenerateFieldsNeeded))
		return
	}
	pixelHeight := string(req.PixelHeight)
	if pixelHeight == "" {
		pixelHeight = defaultPixelHeight
	}

	res, err := h.generation.Generate(c.Request.Context(), services.GenerateInput{
		Category:    req.Category,
		Inputs:      req.InputData,
		PixelHeight: pixelHeight,
	})
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
