package handlers

import (
	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdvisorHandler serves the AI analysis and chat endpoints.
type AdvisorHandler struct {
	analysisService *service.AnalysisService
	chatService     *service.ChatService
	logger          *zap.Logger
}

func NewAdvisorHandler(analysisService *service.AnalysisService, chatService *service.ChatService, logger *zap.Logger) *AdvisorHandler {
	return &AdvisorHandler{
		analysisService: analysisService,
		chatService:     chatService,
		logger:          logger,
	}
}

// Analyze godoc
// @Summary Analyze recent finances
// @Description Aggregates the caller's last 90 days and summarizes them
// @Tags analysis
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.AnalysisResponse
// @Router /api/v1/analysis/analyze [post]
func (h *AdvisorHandler) Analyze(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.analysisService.Analyze(c.Context(), userID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// Chat godoc
// @Summary Chat with the finance advisor
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Message and history"
// @Security Bearer
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} map[string]string
// @Failure 402 {object} map[string]string
// @Router /api/v1/chat [post]
func (h *AdvisorHandler) Chat(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.chatService.Chat(c.Context(), userID, &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}
