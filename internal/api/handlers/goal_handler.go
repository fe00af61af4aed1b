package handlers

import (
	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type GoalHandler struct {
	goalService *service.GoalService
	logger      *zap.Logger
}

func NewGoalHandler(goalService *service.GoalService, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{goalService: goalService, logger: logger}
}

// Create godoc
// @Summary Create a savings goal
// @Tags goals
// @Accept json
// @Produce json
// @Param request body dto.GoalRequest true "Goal"
// @Security Bearer
// @Success 201 {object} dto.GoalResponse
// @Router /api/v1/goals [post]
func (h *GoalHandler) Create(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.GoalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.goalService.Create(c.Context(), userID, &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List godoc
// @Summary List savings goals
// @Tags goals
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.GoalResponse
// @Router /api/v1/goals [get]
func (h *GoalHandler) List(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.goalService.List(c.Context(), userID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// Update godoc
// @Summary Update a savings goal
// @Tags goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param request body dto.GoalRequest true "Goal"
// @Security Bearer
// @Success 200 {object} dto.GoalResponse
// @Router /api/v1/goals/{id} [put]
func (h *GoalHandler) Update(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid goal ID")
	}

	var req dto.GoalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.goalService.Update(c.Context(), userID, id, &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// Delete godoc
// @Summary Delete a savings goal
// @Tags goals
// @Param id path string true "Goal ID"
// @Security Bearer
// @Success 204
// @Router /api/v1/goals/{id} [delete]
func (h *GoalHandler) Delete(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid goal ID")
	}

	if err := h.goalService.Delete(c.Context(), userID, id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Contribute godoc
// @Summary Add money to a savings goal
// @Tags goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param request body dto.ContributeRequest true "Contribution"
// @Security Bearer
// @Success 200 {object} dto.GoalResponse
// @Router /api/v1/goals/{id}/contribute [post]
func (h *GoalHandler) Contribute(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid goal ID")
	}

	var req dto.ContributeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.goalService.Contribute(c.Context(), userID, id, req.Amount)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}
