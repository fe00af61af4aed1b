package models

import "strings"

// FallbackCategory is the taxonomy member used when a classification is
// missing or not part of the closed set. It belongs to both type sets.
const FallbackCategory = "Other"

var expenseCategories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Bills & Utilities",
	"Housing",
	"Healthcare",
	"Education",
	"Entertainment",
	"Travel",
	"Family & Kids",
	"Fees & Charges",
	"Transfer Out",
	FallbackCategory,
}

var incomeCategories = []string{
	"Salary",
	"Bonus",
	"Business",
	"Investment",
	"Interest",
	"Gift",
	"Refund",
	"Transfer In",
	FallbackCategory,
}

// Categories returns a copy of the closed category set for a type.
func Categories(t TransactionType) []string {
	var src []string
	switch t {
	case TransactionTypeIncome:
		src = incomeCategories
	case TransactionTypeExpense:
		src = expenseCategories
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// CanonicalCategory returns the taxonomy spelling of category for type t,
// matching case-insensitively. ok is false when it is not a member.
func CanonicalCategory(t TransactionType, category string) (string, bool) {
	category = strings.TrimSpace(category)
	for _, c := range Categories(t) {
		if strings.EqualFold(c, category) {
			return c, true
		}
	}
	return "", false
}

// IsValidCategory reports taxonomy membership.
func IsValidCategory(t TransactionType, category string) bool {
	_, ok := CanonicalCategory(t, category)
	return ok
}

// CoerceCategory returns the canonical member or FallbackCategory.
// The second value reports whether coercion happened.
func CoerceCategory(t TransactionType, category string) (string, bool) {
	if c, ok := CanonicalCategory(t, category); ok {
		return c, false
	}
	return FallbackCategory, true
}
