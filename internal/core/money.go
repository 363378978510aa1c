// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents so that weekly totals add up exactly.
// Parsing and formatting go through shopspring/decimal.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in cents.
type Money struct {
	Cents int64
}

// MaxCents caps a single amount at 10,000,000,000.00 so that summing every
// entry of a week stays far from int64 overflow.
const MaxCents int64 = 1_000_000_000_000

var maxCents = decimal.NewFromInt(MaxCents)

// ParseMoney converts a decimal string to Money with half-up rounding at the cent.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount; negative values are rejected.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
//	ParseMoney("0")      -> 0 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds d to the cent.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: cents.IntPart()}, nil
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	if m.Cents > MaxCents {
		return ErrAmountTooLarge
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals, e.g. "140.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float returns the amount for spreadsheet cells. Use Cents for arithmetic.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
