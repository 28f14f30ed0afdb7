package tax

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

func brl(cents int64) core.Money { return core.Money{Cents: cents} }

func TestBrazil2025_CalculateTax(t *testing.T) {
	tests := []struct {
		name       string
		liquid     core.Money
		dependents int
		deduction  int64
		taxable    int64
		rate       string
		owed       int64
	}{
		{"below minimum deduction", brl(50000), 0, 60720, 0, "0.075", 0},
		{"top of first bracket", brl(242881 + 60720), 0, 60720, 242881, "0.075", 0},
		{"first cent of second bracket", brl(242882 + 60720), 0, 60720, 242882, "0.15", 0},
		{"just below first limit", brl(300000), 0, 60720, 239280, "0.075", 0},
		{"third bracket", brl(400000), 0, 60720, 339280, "0.225", 8789},
		{"fourth bracket", brl(500000), 0, 60720, 439280, "0.275", 29929},
		{"above last limit", brl(1000000), 0, 60720, 939280, "0.275", 167429},
		{"five dependents beat the minimum", brl(1000000), 5, 94795, 905205, "0.275", 158058},
		{"two dependents use the minimum", brl(1000000), 2, 60720, 939280, "0.275", 167429},
		{"zero liquid income", brl(0), 0, 60720, 0, "0.075", 0},
		// 9292.80 * 0.275 - 908.73 = 1646.79
		{"liquid 9900.00 with two dependents", brl(990000), 2, 60720, 929280, "0.275", 164679},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Brazil2025.CalculateTax(tt.liquid, tt.dependents)
			assert.Equal(t, tt.deduction, got.Deduction.Cents, "deduction")
			assert.Equal(t, tt.taxable, got.TaxableIncome.Cents, "taxable")
			assert.True(t, decimal.RequireFromString(tt.rate).Equal(got.Rate), "rate = %s", got.Rate)
			assert.Equal(t, tt.owed, got.TaxOwed.Cents, "owed")
		})
	}
}

func TestBrazil2025_NeverNegative(t *testing.T) {
	for cents := int64(-100000); cents <= 2000000; cents += 3331 {
		for deps := 0; deps < 6; deps++ {
			got := Brazil2025.CalculateTax(brl(cents), deps)
			require.GreaterOrEqual(t, got.TaxOwed.Cents, int64(0), "liquid=%d deps=%d", cents, deps)
			require.GreaterOrEqual(t, got.TaxableIncome.Cents, int64(0))
		}
	}
}

func TestBrazil2025_MonotonicInIncome(t *testing.T) {
	prev := int64(0)
	for cents := int64(0); cents <= 1500000; cents += 1777 {
		got := Brazil2025.CalculateTax(brl(cents), 0)
		require.GreaterOrEqual(t, got.TaxOwed.Cents, prev, "tax decreased at liquid=%d", cents)
		prev = got.TaxOwed.Cents
	}
}

func TestBrazil2025_MoreDependentsNeverIncreaseTax(t *testing.T) {
	for _, cents := range []int64{100000, 350000, 500000, 1200000} {
		prev := Brazil2025.CalculateTax(brl(cents), 0).TaxOwed.Cents
		for deps := 1; deps <= 10; deps++ {
			got := Brazil2025.CalculateTax(brl(cents), deps).TaxOwed.Cents
			require.LessOrEqual(t, got, prev, "liquid=%d deps=%d", cents, deps)
			prev = got
		}
	}
}

func TestRegistry(t *testing.T) {
	c, err := Get(Brazil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.CalculateTax(brl(0), 0).TaxOwed.Cents)

	_, err = Get("XX")
	assert.True(t, errors.Is(err, ErrUnknownJurisdiction))

	flat := Progressive{Brackets: []Bracket{{Unbounded: true, Rate: decimal.RequireFromString("0.1")}}}
	Register("FLAT", flat)
	defer delete(calculators, "FLAT")

	c, err = Get("FLAT")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.CalculateTax(brl(10000), 0).TaxOwed.Cents)
	assert.Contains(t, Jurisdictions(), Jurisdiction("FLAT"))
}
