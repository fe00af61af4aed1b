package handlers

import (
	"errors"

	"fintrack/internal/service"
	"fintrack/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError renders err as the JSON error body. Unknown errors are logged
// and hidden behind a generic message.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var (
		ve *service.ValidationError
		dq *service.DataQualityError
		ue *service.UpstreamServiceError
		pe *service.PersistenceError
		fe *fiber.Error
	)

	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Message})
	case errors.As(err, &dq):
		body := fiber.Map{"error": dq.Message}
		if len(dq.Diagnostics) > 0 {
			body["diagnostics"] = dq.Diagnostics
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.As(err, &ue):
		status := ue.StatusCode
		if status < 400 || status > 599 {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"error":      ue.Error(),
			"status":     ue.StatusCode,
			"details":    ue.Details,
			"suggestion": ue.Suggestion,
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, service.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "User already exists"})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrPushDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &pe):
		logger.Error("Store operation failed", zap.String("op", pe.Op), zap.Error(pe.Err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": pe.Error()})
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	default:
		logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

// ErrorHandler is the fiber fallback for errors returned past a handler.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, err)
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

func currentUser(c *fiber.Ctx) (uuid.UUID, bool) {
	return middleware.UserID(c)
}

func pathID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}
