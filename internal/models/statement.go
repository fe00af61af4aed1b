package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoMovement     = errors.New("neither debit nor credit is set")
	ErrBothSides      = errors.New("both debit and credit are set")
	ErrNegativeAmount = errors.New("debit and credit must not be negative")
)

// ParsedTransaction is one statement row mapped onto the canonical fields.
// Exactly one of Debit and Credit is non-zero for a usable row.
type ParsedTransaction struct {
	Date        string           `json:"date"`
	Sender      string           `json:"sender"`
	Bank        string           `json:"bank"`
	Description string           `json:"description"`
	Debit       decimal.Decimal  `json:"debit"`
	Credit      decimal.Decimal  `json:"credit"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
}

// CheckExclusive reports a debit/credit violation, nil for a usable row.
func (p ParsedTransaction) CheckExclusive() error {
	switch {
	case p.Debit.IsNegative() || p.Credit.IsNegative():
		return ErrNegativeAmount
	case p.Debit.IsZero() && p.Credit.IsZero():
		return ErrNoMovement
	case p.Debit.IsPositive() && p.Credit.IsPositive():
		return ErrBothSides
	}
	return nil
}

// SignType is the type implied by the money movement: debit means expense.
// Only meaningful when CheckExclusive returns nil.
func (p ParsedTransaction) SignType() TransactionType {
	if p.Debit.IsPositive() {
		return TransactionTypeExpense
	}
	return TransactionTypeIncome
}

// MovedAmount is the non-zero side of the row.
func (p ParsedTransaction) MovedAmount() decimal.Decimal {
	if p.Debit.IsPositive() {
		return p.Debit
	}
	return p.Credit
}

// ClassifiedTransaction is a parsed row with a resolved type and a
// taxonomy-valid category.
type ClassifiedTransaction struct {
	ParsedTransaction
	Type          TransactionType `json:"type"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	SuggestedType TransactionType `json:"suggestedType,omitempty"`
	IsValid       bool            `json:"isValid"`
}
