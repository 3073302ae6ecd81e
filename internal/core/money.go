package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents keeps cent arithmetic far away from int64 overflow.
var maxCents = decimal.New(1, 15)

// ParseMoney converts a user or file supplied decimal string to Money.
//
// A single comma is accepted as decimal separator ("12,34") and the value is
// rounded half away from zero to two places. Negative values are rejected;
// zero is allowed (a salary may be 0), callers that need a strictly positive
// amount check Cents themselves.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThanOrEqual(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "-250.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float returns the amount as float64 for display purposes only.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}
