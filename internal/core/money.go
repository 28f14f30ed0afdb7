package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney parses a positive amount typed by a user or read from a
// spreadsheet cell. Both "1234.56" and the pt-BR "1.234,56" forms are
// accepted, as is an optional "R$" prefix. The value is rounded half-up to
// the cent.
func ParseMoney(s string) (Money, error) {
	m, err := parseSignedMoney(s)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func parseSignedMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = normalizeSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d), nil
}

// ParseSignedMoney is ParseMoney without the positivity check.
func ParseSignedMoney(s string) (Money, error) {
	return parseSignedMoney(s)
}

// normalizeSeparators turns the decimal separator into a dot and drops
// thousands separators. When both separators appear, the last one is the
// decimal separator.
func normalizeSeparators(s string) string {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		return strings.ReplaceAll(s, ",", ".")
	}
	return s
}

// MoneyFromDecimal rounds d half-up to the cent.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// MoneyFromFloat is used for numeric spreadsheet cells.
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Float64 is for display and spreadsheet cells only. Calculations use cents.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount with two decimals, e.g. "1234.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
