package handlers

import (
	"fmt"
	"io"

	"fintrack/internal/dto"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ImportHandler struct {
	importService *service.ImportService
	logger        *zap.Logger
}

func NewImportHandler(importService *service.ImportService, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

// Upload godoc
// @Summary Upload a bank statement
// @Description Read an .xlsx, .xlsm or .csv statement and detect its layout
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Statement file"
// @Security Bearer
// @Success 200 {object} service.LayoutResult
// @Failure 400 {object} map[string]string
// @Router /api/v1/import/upload [post]
func (h *ImportHandler) Upload(c *fiber.Ctx) error {
	if _, ok := currentUser(c); !ok {
		return unauthorized(c)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "File is required")
	}

	src, err := file.Open()
	if err != nil {
		return badRequest(c, "Failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return writeError(c, h.logger, fmt.Errorf("read upload: %w", err))
	}

	result, err := h.importService.Upload(c.Context(), file.Filename, data)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(result)
}

// Parse godoc
// @Summary Detect the layout of an extracted grid
// @Tags import
// @Accept json
// @Produce json
// @Param request body dto.ParseRequest true "Raw rows"
// @Security Bearer
// @Success 200 {object} service.LayoutResult
// @Failure 400 {object} map[string]string
// @Router /api/v1/import/parse [post]
func (h *ImportHandler) Parse(c *fiber.Ctx) error {
	if _, ok := currentUser(c); !ok {
		return unauthorized(c)
	}

	var req dto.ParseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.importService.Parse(c.Context(), req.Rows)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(result)
}

// Classify godoc
// @Summary Classify parsed statement rows
// @Tags import
// @Accept json
// @Produce json
// @Param request body dto.ClassifyRequest true "Parsed transactions"
// @Security Bearer
// @Success 200 {object} service.ClassificationResult
// @Failure 400 {object} map[string]string
// @Router /api/v1/import/classify [post]
func (h *ImportHandler) Classify(c *fiber.Ctx) error {
	if _, ok := currentUser(c); !ok {
		return unauthorized(c)
	}

	var req dto.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.importService.Classify(c.Context(), req.Transactions)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(result)
}

// BulkImport godoc
// @Summary Store confirmed transactions
// @Tags import
// @Accept json
// @Produce json
// @Param request body dto.BulkImportRequest true "Confirmed transactions"
// @Security Bearer
// @Success 201 {object} dto.BulkImportResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/import/bulk-import [post]
func (h *ImportHandler) BulkImport(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.BulkImportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	n, err := h.importService.BulkImport(c.Context(), userID, req.Transactions)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.BulkImportResponse{
		Imported: n,
		Message:  fmt.Sprintf("Imported %d transactions", n),
	})
}
