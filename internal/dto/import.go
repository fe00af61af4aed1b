package dto

import (
	"fintrack/internal/models"
	"fintrack/pkg/spreadsheet"
)

// ParseRequest carries a grid the client already extracted from a file.
type ParseRequest struct {
	Rows spreadsheet.Grid `json:"rows" validate:"required"`
}

type ClassifyRequest struct {
	Transactions []models.ParsedTransaction `json:"transactions" validate:"required"`
}

type BulkImportRequest struct {
	Transactions []models.ClassifiedTransaction `json:"transactions" validate:"required"`
}

type BulkImportResponse struct {
	Imported int64  `json:"imported"`
	Message  string `json:"message"`
}
