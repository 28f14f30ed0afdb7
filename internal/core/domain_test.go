package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfKeepsLocalCalendarDay(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	ts := time.Date(2025, 1, 31, 22, 30, 0, 0, saoPaulo) // 01:30 UTC on Feb 1st
	d := DateOf(ts)
	if d.String() != "2025-01-31" {
		t.Fatalf("expected 2025-01-31, got %s", d)
	}
	if d.MonthKey() != "2025-01" {
		t.Fatalf("expected month 2025-01, got %s", d.MonthKey())
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-01", "2025-03-01", true},
		{" 2025-03-01 ", "2025-03-01", true},
		{"2025-03-01T02:00:00.000Z", "2025-03-01", true},
		{"2025-02-30", "", false},
		{"01/03/2025", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || d.String() != tc.want {
				t.Fatalf("%q: expected %s, got %s (err=%v)", tc.in, tc.want, d, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	dec := decimal.RequireFromString
	cases := []struct {
		name string
		s    Settings
		err  error
	}{
		{"default", DefaultSettings(), nil},
		{"all to owner", Settings{OwnerSplit: dec("1"), AdminSplit: dec("0")}, nil},
		{"three dependents", Settings{Dependents: 3, OwnerSplit: dec("0.75"), AdminSplit: dec("0.25")}, nil},
		{"negative dependents", Settings{Dependents: -1, OwnerSplit: dec("0.8"), AdminSplit: dec("0.2")}, ErrInvalidDependents},
		{"sum above one", Settings{OwnerSplit: dec("0.9"), AdminSplit: dec("0.2")}, ErrInvalidSplit},
		{"negative admin", Settings{OwnerSplit: dec("1.1"), AdminSplit: dec("-0.1")}, ErrInvalidSplit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if tc.err == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestNewReservationSplitsTotal(t *testing.T) {
	r, err := NewReservation(NewDate(2025, 3, 10), 4, Money{Cents: 100001}, DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == "" {
		t.Fatalf("expected an ID to be assigned")
	}
	// 1000.01 * 0.8 = 800.008 -> 800.01
	if r.OwnerAmount.Cents != 80001 {
		t.Fatalf("owner amount = %d, want 80001", r.OwnerAmount.Cents)
	}
	if r.AdminFee.Cents != 20000 {
		t.Fatalf("admin fee = %d, want 20000", r.AdminFee.Cents)
	}
	if r.OwnerAmount.Add(r.AdminFee) != r.Total {
		t.Fatalf("split does not add up to total")
	}
}

func TestNewReservationRejectsInvalidInput(t *testing.T) {
	bad := Settings{OwnerSplit: decimal.RequireFromString("0.5"), AdminSplit: decimal.RequireFromString("0.4")}
	cases := []struct {
		name     string
		date     Date
		nights   int
		total    Money
		settings Settings
		err      error
	}{
		{"zero nights", NewDate(2025, 1, 1), 0, Money{Cents: 100}, DefaultSettings(), ErrInvalidNights},
		{"zero total", NewDate(2025, 1, 1), 2, Money{}, DefaultSettings(), ErrInvalidAmount},
		{"zero date", Date{}, 2, Money{Cents: 100}, DefaultSettings(), ErrInvalidDate},
		{"bad split", NewDate(2025, 1, 1), 2, Money{Cents: 100}, bad, ErrInvalidSplit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReservation(tc.date, tc.nights, tc.total, tc.settings)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestReservationValidateDetectsSplitMismatch(t *testing.T) {
	r := Reservation{
		CheckIn:     NewDate(2025, 1, 1),
		Nights:      1,
		Total:       Money{Cents: 1000},
		OwnerAmount: Money{Cents: 800},
		AdminFee:    Money{Cents: 100},
	}
	if err := r.Validate(); !errors.Is(err, ErrSplitMismatch) {
		t.Fatalf("expected ErrSplitMismatch, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:     NewDate(2025, 1, 1),
		Amount:   Money{Cents: 100},
		Category: CategoryCleaning,
		Notes:    "after checkout",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	uncategorized := Expense{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}}
	if err := uncategorized.Validate(); err != nil {
		t.Fatalf("expected ok without category, got %v", err)
	}

	bads := []Expense{
		{Date: Date{Time: time.Time{}}, Amount: Money{Cents: 1}},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 0}},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Category: "pets"},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Notes: string(make([]byte, 501))},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Condo_Fee ")
	if err != nil || c != CategoryCondoFee {
		t.Fatalf("expected condo_fee, got %q (err=%v)", c, err)
	}
	if c, err := ParseCategory(""); err != nil || c != "" {
		t.Fatalf("empty category should be accepted, got %q (err=%v)", c, err)
	}
	if _, err := ParseCategory("pets"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if len(Categories()) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(Categories()))
	}
}
