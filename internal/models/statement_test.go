package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParsedTransaction_CheckExclusive(t *testing.T) {
	d := decimal.NewFromInt
	cases := []struct {
		name string
		p    ParsedTransaction
		want error
	}{
		{"debit only", ParsedTransaction{Debit: d(150000)}, nil},
		{"credit only", ParsedTransaction{Credit: d(5000000)}, nil},
		{"neither", ParsedTransaction{}, ErrNoMovement},
		{"both", ParsedTransaction{Debit: d(1), Credit: d(1)}, ErrBothSides},
		{"negative", ParsedTransaction{Debit: d(-5)}, ErrNegativeAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.CheckExclusive())
		})
	}
}

func TestParsedTransaction_SignTypeAndAmount(t *testing.T) {
	debit := ParsedTransaction{Debit: decimal.NewFromInt(150000)}
	assert.Equal(t, TransactionTypeExpense, debit.SignType())
	assert.True(t, debit.MovedAmount().Equal(decimal.NewFromInt(150000)))

	credit := ParsedTransaction{Credit: decimal.NewFromInt(42)}
	assert.Equal(t, TransactionTypeIncome, credit.SignType())
	assert.True(t, credit.MovedAmount().Equal(decimal.NewFromInt(42)))
}
