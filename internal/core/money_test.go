package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"R$ 1.234,56", 123456, true},
		{"1,234.56", 123456, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseSignedMoneyAllowsNegative(t *testing.T) {
	m, err := ParseSignedMoney("-12,50")
	if err != nil || m.Cents != -1250 {
		t.Fatalf("expected -1250, got %d (err=%v)", m.Cents, err)
	}
}

func TestMoneyFromDecimalRoundsHalfUp(t *testing.T) {
	cases := map[string]int64{
		"182.16075": 18216,
		"0.005":     1,
		"0.0049":    0,
		"10":        1000,
	}
	for in, want := range cases {
		if got := MoneyFromDecimal(decimal.RequireFromString(in)).Cents; got != want {
			t.Fatalf("%s: expected %d cents, got %d", in, want, got)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if s := (Money{Cents: 123450}).String(); s != "1234.50" {
		t.Fatalf("expected 1234.50, got %s", s)
	}
	if f := (Money{Cents: 199}).Float64(); f != 1.99 {
		t.Fatalf("expected 1.99, got %v", f)
	}
}
