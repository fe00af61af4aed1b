package dto

import "github.com/shopspring/decimal"

type TransactionRequest struct {
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Category    string          `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description"`
	Bank        string          `json:"bank"`
	Date        string          `json:"date" validate:"required"` // YYYY-MM-DD
}

type TransactionResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Bank        string          `json:"bank,omitempty"`
	Source      string          `json:"source"`
	Date        string          `json:"date"`
	CreatedAt   string          `json:"created_at"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Count        int                   `json:"count"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// TransactionCSVRow is one line of the CSV export.
type TransactionCSVRow struct {
	Date        string `csv:"date"`
	Type        string `csv:"type"`
	Category    string `csv:"category"`
	Amount      string `csv:"amount"`
	Currency    string `csv:"currency"`
	Description string `csv:"description"`
	Bank        string `csv:"bank"`
	Source      string `csv:"source"`
}

type CategoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}
