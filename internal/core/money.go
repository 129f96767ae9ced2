// Package core provides the ledger's domain types and their invariants.
//
// This file contains money parsing and formatting. Amounts are held as
// integer minor units and only pass through decimal arithmetic at the edges.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in currency minor units.
type Money struct {
	Cents int64
}

var ErrInvalidAmount = &Error{Kind: KindValidation, Message: "amount must be greater than zero"}

// Cents builds a Money value.
func Cents(c int64) Money { return Money{Cents: c} }

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signed, zero
// and malformed values are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	m, err := MoneyFromDecimal(d)
	if err != nil || m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// MoneyFromDecimal rounds d to two places and converts it to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	c := d.Round(2).Shift(2)
	if !c.IsInteger() || c.GreaterThan(decimal.NewFromInt(maxCents)) || c.LessThan(decimal.NewFromInt(-maxCents)) {
		return Money{}, Validationf("amount %s out of range", d.String())
	}
	return Money{Cents: c.IntPart()}, nil
}

const maxCents = 1<<62 - 1

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		m.Cents = 0
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return Validationf("invalid amount %q", s)
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Percent is a percentage rendered as a JSON number with two decimals.
type Percent struct {
	decimal.Decimal
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.StringFixed(2)), nil
}

// PercentChange returns (current-previous)/|previous|*100 rounded to two
// decimals, or zero when previous is zero.
func PercentChange(current, previous Money) Percent {
	if previous.Cents == 0 {
		return Percent{Decimal: decimal.Zero}
	}
	diff := decimal.NewFromInt(current.Cents - previous.Cents)
	base := decimal.NewFromInt(previous.Cents).Abs()
	return Percent{Decimal: diff.Mul(decimal.NewFromInt(100)).DivRound(base, 2)}
}
