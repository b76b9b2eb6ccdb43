// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Cent is the smallest monetary unit the system reasons about.
var Cent = decimal.New(1, -2) // 0.01

// WithinCent reports whether two amounts differ by at most one cent.
// Monetary reconciliation (invoice sync) tolerates sub-cent drift from
// historic rounding.
func WithinCent(a, b Money) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Cent)
}

// Percent returns value scaled by pct/100 (e.g. Percent(200, 50) = 100).
func Percent(value Money, pct Money) Money {
	return value.Mul(pct).Div(decimal.New(100, 0))
}
