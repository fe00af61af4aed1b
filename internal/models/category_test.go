package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategories_DisjointExceptFallback(t *testing.T) {
	income := map[string]bool{}
	for _, c := range Categories(TransactionTypeIncome) {
		income[c] = true
	}
	for _, c := range Categories(TransactionTypeExpense) {
		if c == FallbackCategory {
			continue
		}
		assert.Falsef(t, income[c], "%q is in both sets", c)
	}
	assert.True(t, IsValidCategory(TransactionTypeIncome, FallbackCategory))
	assert.True(t, IsValidCategory(TransactionTypeExpense, FallbackCategory))
}

func TestCoerceCategory(t *testing.T) {
	c, coerced := CoerceCategory(TransactionTypeExpense, "food & dining")
	assert.Equal(t, "Food & Dining", c)
	assert.False(t, coerced)

	c, coerced = CoerceCategory(TransactionTypeExpense, "Salary")
	assert.Equal(t, FallbackCategory, c)
	assert.True(t, coerced)

	c, coerced = CoerceCategory(TransactionTypeIncome, "Crypto Moonshot")
	assert.Equal(t, FallbackCategory, c)
	assert.True(t, coerced)
}

func TestCategories_ReturnsCopy(t *testing.T) {
	cats := Categories(TransactionTypeIncome)
	cats[0] = "mutated"
	assert.Equal(t, "Salary", Categories(TransactionTypeIncome)[0])
	assert.Empty(t, Categories(TransactionType("bogus")))
}
