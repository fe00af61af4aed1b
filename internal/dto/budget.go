package dto

import "github.com/shopspring/decimal"

type BudgetRequest struct {
	Category string          `json:"category" validate:"required"`
	Month    string          `json:"month" validate:"required"` // YYYY-MM
	Amount   decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type BudgetResponse struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Month       string          `json:"month"`
	Amount      decimal.Decimal `json:"amount"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed float64         `json:"percentUsed"`
}
