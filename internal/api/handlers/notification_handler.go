package handlers

import (
	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notifyService *service.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifyService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifyService: notifyService, logger: logger}
}

// PublicKey godoc
// @Summary VAPID public key for browser subscription
// @Tags notifications
// @Produce json
// @Success 200 {object} dto.VAPIDKeyResponse
// @Failure 503 {object} map[string]string
// @Router /api/v1/notifications/vapid-public-key [get]
func (h *NotificationHandler) PublicKey(c *fiber.Ctx) error {
	key, err := h.notifyService.PublicKey()
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(dto.VAPIDKeyResponse{PublicKey: key})
}

// Subscribe godoc
// @Summary Register a Web Push subscription
// @Tags notifications
// @Accept json
// @Param request body dto.SubscribeRequest true "Browser subscription"
// @Security Bearer
// @Success 201
// @Router /api/v1/notifications/subscribe [post]
func (h *NotificationHandler) Subscribe(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.notifyService.Subscribe(c.Context(), userID, &req); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// Unsubscribe godoc
// @Summary Remove a Web Push subscription
// @Tags notifications
// @Accept json
// @Param request body dto.UnsubscribeRequest true "Endpoint"
// @Security Bearer
// @Success 204
// @Router /api/v1/notifications/subscribe [delete]
func (h *NotificationHandler) Unsubscribe(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.UnsubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.notifyService.Unsubscribe(c.Context(), userID, req.Endpoint); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Test godoc
// @Summary Send a test notification to the caller
// @Tags notifications
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.DeliveryReport
// @Router /api/v1/notifications/test [post]
func (h *NotificationHandler) Test(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	report, err := h.notifyService.SendTest(c.Context(), userID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(report)
}

// Schedule godoc
// @Summary Daily reminder schedule
// @Tags notifications
// @Produce json
// @Security Bearer
// @Success 200 {object} scheduler.Status
// @Router /api/v1/notifications/schedule [get]
func (h *NotificationHandler) Schedule(c *fiber.Ctx) error {
	return c.JSON(h.notifyService.ScheduleStatus())
}

// CancelSchedule godoc
// @Summary Cancel the daily reminder
// @Description Stops the timer and clears the stored slot. Called by operators with the X-Cron-Secret header
// @Tags notifications
// @Param X-Cron-Secret header string true "Shared cron secret"
// @Success 204
// @Failure 401 {object} map[string]string
// @Router /api/v1/notifications/schedule [delete]
func (h *NotificationHandler) CancelSchedule(c *fiber.Ctx) error {
	if err := h.notifyService.CancelSchedule(c.Context()); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SendDaily godoc
// @Summary Trigger the daily reminder run
// @Description Called by an external cron with the X-Cron-Secret header
// @Tags notifications
// @Produce json
// @Param X-Cron-Secret header string true "Shared cron secret"
// @Success 200 {object} dto.DeliveryReport
// @Failure 401 {object} map[string]string
// @Router /api/v1/notifications/send-daily [post]
func (h *NotificationHandler) SendDaily(c *fiber.Ctx) error {
	report, err := h.notifyService.SendDaily(c.Context())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(report)
}
