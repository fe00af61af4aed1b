package dto

import "github.com/shopspring/decimal"

type GoalRequest struct {
	Name         string          `json:"name" validate:"required"`
	TargetAmount decimal.Decimal `json:"targetAmount" validate:"required,gt=0"`
	Deadline     *string         `json:"deadline,omitempty"` // YYYY-MM-DD
}

type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type GoalResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TargetAmount    decimal.Decimal `json:"targetAmount"`
	CurrentAmount   decimal.Decimal `json:"currentAmount"`
	Deadline        *string         `json:"deadline,omitempty"`
	ProgressPercent float64         `json:"progressPercent"`
	Completed       bool            `json:"completed"`
	CreatedAt       string          `json:"created_at"`
}
