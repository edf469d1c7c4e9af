package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyArithmetic(t *testing.T) {
	ten := NewMoney(decimal.RequireFromString("10.00"), "USD")
	five := NewMoney(decimal.RequireFromString("5.00"), "USD")

	sum, err := ten.Add(five)
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(decimal.RequireFromString("15.00")))

	doubled := ten.MulInt(2)
	assert.True(t, doubled.Amount.Equal(decimal.RequireFromString("20.00")))
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	usd := NewMoney(decimal.NewFromInt(1), "USD")
	eur := NewMoney(decimal.NewFromInt(1), "EUR")

	_, err := usd.Add(eur)
	assert.Error(t, err)
}

func TestMoneyFromString(t *testing.T) {
	m, err := MoneyFromString("25.00", "USD")
	require.NoError(t, err)
	assert.Equal(t, "25.00 USD", m.String())

	_, err = MoneyFromString("not-a-number", "USD")
	assert.Error(t, err)
}

func TestMoneyExactness(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3
	a := NewMoney(decimal.RequireFromString("0.1"), "USD")
	b := NewMoney(decimal.RequireFromString("0.2"), "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(decimal.RequireFromString("0.3")))
}

func TestNewID(t *testing.T) {
	_, err := NewID("")
	assert.Error(t, err)

	id, err := NewID("ORD-1A2B3C4D")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1A2B3C4D", id.String())

	assert.NotEqual(t, GenerateUUID(), GenerateUUID())
}
