package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CategoryCleaning    ExpenseCategory = "cleaning"
	CategoryMaintenance ExpenseCategory = "maintenance"
	CategoryUtilities   ExpenseCategory = "utilities"
	CategoryInternet    ExpenseCategory = "internet"
	CategoryCondoFee    ExpenseCategory = "condo_fee"
	CategoryPropertyTax ExpenseCategory = "property_tax"
	CategorySupplies    ExpenseCategory = "supplies"
	CategoryFurniture   ExpenseCategory = "furniture"
	CategoryOther       ExpenseCategory = "other"
)

type (
	ExpenseCategory string

	// Date is a calendar date. The embedded time is always 00:00 UTC and only
	// carries year, month and day; it is never converted between zones.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Reservation is a stay paid out by the booking platform. OwnerAmount and
	// AdminFee are fixed when the reservation is created.
	Reservation struct {
		ID          string
		CheckIn     Date
		Nights      int
		Total       Money
		OwnerAmount Money
		AdminFee    Money
	}

	Expense struct {
		ID       string
		Date     Date
		Amount   Money
		Category ExpenseCategory // optional
		Notes    string          // optional
	}

	Settings struct {
		Dependents int
		OwnerSplit decimal.Decimal
		AdminSplit decimal.Decimal
	}
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidDate       = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidNights     = fmt.Errorf("%w: nights must be positive", ErrValidation)
	ErrInvalidSplit      = fmt.Errorf("%w: owner and admin split must be within [0,1] and sum to 1", ErrValidation)
	ErrInvalidDependents = fmt.Errorf("%w: dependents must not be negative", ErrValidation)
	ErrInvalidCategory   = fmt.Errorf("%w: unknown expense category", ErrValidation)
	ErrInvalidMonthKey   = fmt.Errorf("%w: month key must be YYYY-MM", ErrValidation)
	ErrSplitMismatch     = fmt.Errorf("%w: owner amount and admin fee must add up to total", ErrValidation)
)

var categories = []ExpenseCategory{
	CategoryCleaning, CategoryMaintenance, CategoryUtilities, CategoryInternet,
	CategoryCondoFee, CategoryPropertyTax, CategorySupplies, CategoryFurniture, CategoryOther,
}

// Categories lists the accepted expense categories.
func Categories() []ExpenseCategory {
	return append([]ExpenseCategory(nil), categories...)
}

// ParseCategory normalizes s into a known category. An empty string is a
// valid, uncategorized expense.
func ParseCategory(s string) (ExpenseCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// MonthKey returns the YYYY-MM key of the month the date falls in.
func (d Date) MonthKey() MonthKey {
	return FormatMonthKey(d)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the calendar fields of t as seen in t's own location. A
// timestamp taken at 22:00 on the 31st in UTC-3 stays on the 31st.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses YYYY-MM-DD. Longer ISO strings are cut to their date part
// instead of being interpreted in UTC, so "2025-03-01T02:00:00Z" is March 1st
// for every user. Year 0000 is rejected.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(time.DateOnly) && s[4] == '-' {
		s = s[:len(time.DateOnly)]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil || t.Year() < 1 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DefaultSettings is used until settings are loaded from the remote store.
func DefaultSettings() Settings {
	return Settings{
		Dependents: 0,
		OwnerSplit: decimal.RequireFromString("0.8"),
		AdminSplit: decimal.RequireFromString("0.2"),
	}
}

func (s Settings) Validate() error {
	if s.Dependents < 0 {
		return ErrInvalidDependents
	}
	one := decimal.NewFromInt(1)
	for _, part := range []decimal.Decimal{s.OwnerSplit, s.AdminSplit} {
		if part.IsNegative() || part.GreaterThan(one) {
			return ErrInvalidSplit
		}
	}
	if !s.OwnerSplit.Add(s.AdminSplit).Equal(one) {
		return ErrInvalidSplit
	}
	return nil
}

// NewReservation creates a reservation with a fresh ID and splits the total
// with the current settings. The owner share is rounded to the cent and the
// administrator takes the remainder, so the two always add up to the total.
func NewReservation(checkIn Date, nights int, total Money, s Settings) (Reservation, error) {
	if err := s.Validate(); err != nil {
		return Reservation{}, err
	}
	owner, admin := SplitTotal(total, s)
	r := Reservation{
		ID:          uuid.NewString(),
		CheckIn:     checkIn,
		Nights:      nights,
		Total:       total,
		OwnerAmount: owner,
		AdminFee:    admin,
	}
	if err := r.Validate(); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

// SplitTotal divides total between owner and administrator.
func SplitTotal(total Money, s Settings) (owner, admin Money) {
	owner = MoneyFromDecimal(total.Decimal().Mul(s.OwnerSplit))
	return owner, total.Sub(owner)
}

func (r Reservation) Validate() error {
	if err := r.CheckIn.Validate(); err != nil {
		return err
	}
	if r.Nights <= 0 {
		return ErrInvalidNights
	}
	if err := r.Total.Validate(); err != nil {
		return err
	}
	if r.OwnerAmount.Cents < 0 || r.AdminFee.Cents < 0 {
		return ErrInvalidAmount
	}
	if r.OwnerAmount.Add(r.AdminFee) != r.Total {
		return ErrSplitMismatch
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Category != "" {
		if _, err := ParseCategory(string(e.Category)); err != nil {
			return err
		}
	}
	if len(e.Notes) > 500 {
		return fmt.Errorf("%w: notes too long (max 500 characters)", ErrValidation)
	}
	return nil
}
