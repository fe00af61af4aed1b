package dto

import "github.com/shopspring/decimal"

type AnalysisStats struct {
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
	Balance     decimal.Decimal `json:"balance"`
	SavingsRate float64         `json:"savingsRate"`
}

type CategoryShare struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Share    float64         `json:"share"`
}

type AnalysisPeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
	Days int    `json:"days"`
}

type AnalysisResponse struct {
	Summary              string          `json:"summary"`
	Recommendations      []string        `json:"recommendations"`
	Stats                AnalysisStats   `json:"stats"`
	TopExpenseCategories []CategoryShare `json:"topExpenseCategories"`
	IncomeStability      *string         `json:"incomeStability,omitempty"`
	Period               AnalysisPeriod  `json:"period"`
	AnalysisMode         string          `json:"analysisMode"`
}
