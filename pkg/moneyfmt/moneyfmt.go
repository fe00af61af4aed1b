// Package moneyfmt renders decimal amounts for humans using ISO-4217 rules.
package moneyfmt

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "VND"

// Format renders amount in the given currency, e.g. "$1,234.50". Unknown
// codes fall back to DefaultCurrency.
func Format(amount decimal.Decimal, code string) string {
	return toMoney(amount, code).Display()
}

// MinorUnits converts amount to the currency's smallest unit, rounding half
// away from zero.
func MinorUnits(amount decimal.Decimal, code string) int64 {
	return toMoney(amount, code).Amount()
}

func toMoney(amount decimal.Decimal, code string) *money.Money {
	code = strings.ToUpper(strings.TrimSpace(code))
	currency := money.GetCurrency(code)
	if currency == nil {
		code = DefaultCurrency
		currency = money.GetCurrency(code)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	return money.New(amount.Mul(multiplier).Round(0).IntPart(), code)
}
