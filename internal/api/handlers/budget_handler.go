package handlers

import (
	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type BudgetHandler struct {
	budgetService *service.BudgetService
	logger        *zap.Logger
}

func NewBudgetHandler(budgetService *service.BudgetService, logger *zap.Logger) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, logger: logger}
}

// Upsert godoc
// @Summary Set a monthly category budget
// @Tags budgets
// @Accept json
// @Produce json
// @Param request body dto.BudgetRequest true "Budget"
// @Security Bearer
// @Success 200 {object} dto.BudgetResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/budgets [post]
func (h *BudgetHandler) Upsert(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.BudgetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.budgetService.Upsert(c.Context(), userID, &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// List godoc
// @Summary List budgets with spending
// @Tags budgets
// @Produce json
// @Param month query string false "Month YYYY-MM, defaults to the current month"
// @Security Bearer
// @Success 200 {array} dto.BudgetResponse
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) List(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.budgetService.List(c.Context(), userID, c.Query("month"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// Delete godoc
// @Summary Delete a budget
// @Tags budgets
// @Param id path string true "Budget ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid budget ID")
	}

	if err := h.budgetService.Delete(c.Context(), userID, id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
