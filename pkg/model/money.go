package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount with a display unit. The unit is a label only;
// no conversion is ever performed. Arithmetic keeps the first non-empty unit.
type Money struct {
	Amount decimal.Decimal `json:"amount"`
	Unit   string          `json:"unit"`
}

// NewMoney builds a Money from a decimal amount and unit.
func NewMoney(amount decimal.Decimal, unit string) Money {
	return Money{Amount: amount, Unit: unit}
}

// ZeroMoney returns a zero amount in the given unit.
func ZeroMoney(unit string) Money {
	return Money{Amount: decimal.Zero, Unit: unit}
}

// ParseMoney parses a raw amount string. A nil or malformed value yields
// ok=false rather than an error; callers treat it as absent.
func ParseMoney(raw *string, unit string) (Money, bool) {
	if raw == nil {
		return Money{}, false
	}
	amount, err := decimal.NewFromString(*raw)
	if err != nil {
		return Money{}, false
	}
	return Money{Amount: amount, Unit: unit}, true
}

// Add returns m + other. Units are reconciled by keeping the first non-empty one.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount), Unit: reconcileUnit(m.Unit, other.Unit)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount), Unit: reconcileUnit(m.Unit, other.Unit)}
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Unit: m.Unit}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// String renders the amount for logs; "$12.34" for USD, "12.34 EUR" otherwise.
func (m Money) String() string {
	if m.Unit == "USD" {
		return "$" + m.Amount.StringFixed(2)
	}
	if m.Unit == "" {
		return m.Amount.StringFixed(2)
	}
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Unit)
}

func reconcileUnit(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
