package moneyfmt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat_USD(t *testing.T) {
	assert.Equal(t, "$1,234.50", Format(decimal.RequireFromString("1234.5"), "usd"))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(123450), MinorUnits(decimal.RequireFromString("1234.5"), "USD"))
	assert.Equal(t, int64(150000), MinorUnits(decimal.NewFromInt(150000), "VND"))
	assert.Equal(t, int64(1235), MinorUnits(decimal.RequireFromString("1234.6"), "JPY"))
}

func TestFormat_UnknownCurrencyFallsBack(t *testing.T) {
	assert.Equal(t, Format(decimal.NewFromInt(5000), DefaultCurrency), Format(decimal.NewFromInt(5000), "???"))
	assert.Contains(t, Format(decimal.NewFromInt(5000), "VND"), "5")
}
