package handlers

import (
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewTransactionHandler(txService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// Categories godoc
// @Summary List the category taxonomy
// @Tags transactions
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.CategoriesResponse
// @Router /api/v1/categories [get]
func (h *TransactionHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(h.txService.Categories())
}

// Create godoc
// @Summary Log a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body dto.TransactionRequest true "Transaction"
// @Security Bearer
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.txService.Create(c.Context(), userID, &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List godoc
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Param type query string false "income or expense"
// @Param category query string false "Category"
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Security Bearer
// @Success 200 {object} dto.TransactionListResponse
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.txService.List(c.Context(), userID, filter)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// Update godoc
// @Summary Update a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.TransactionRequest true "Transaction"
// @Security Bearer
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}

	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.txService.Update(c.Context(), userID, id, &req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(resp)
}

// Delete godoc
// @Summary Delete a transaction
// @Tags transactions
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}

	if err := h.txService.Delete(c.Context(), userID, id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Export godoc
// @Summary Export transactions as CSV
// @Tags transactions
// @Produce text/csv
// @Security Bearer
// @Success 200 {string} string "CSV file"
// @Router /api/v1/transactions/export [get]
func (h *TransactionHandler) Export(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	data, err := h.txService.ExportCSV(c.Context(), userID, filter)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment("transactions.csv")
	return c.Send(data)
}

func parseFilter(c *fiber.Ctx) (models.TransactionFilter, error) {
	filter := models.TransactionFilter{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}

	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		if !t.Valid() {
			return filter, fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
		}
		filter.Type = &t
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}
	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(models.DateLayout, v)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
		}
		*dst = &t
	}
	return filter, nil
}
