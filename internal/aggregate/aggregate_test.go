package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/paid"
	"github.com/mcarneiro/airbnb-organizer/internal/tax"
)

func reservation(t *testing.T, y, m, d, nights int, cents int64) core.Reservation {
	t.Helper()
	r, err := core.NewReservation(core.NewDate(y, m, d), nights, core.Money{Cents: cents}, core.DefaultSettings())
	require.NoError(t, err)
	return r
}

func expense(y, m, d int, cents int64) core.Expense {
	return core.Expense{ID: "e", Date: core.NewDate(y, m, d), Amount: core.Money{Cents: cents}}
}

func TestSummary_MarchScenario(t *testing.T) {
	ds := Dataset{
		Reservations: []core.Reservation{
			reservation(t, 2025, 3, 2, 3, 250000),  // owner 2000.00
			reservation(t, 2025, 3, 20, 5, 375000), // owner 3000.00
		},
		Expenses: []core.Expense{
			expense(2025, 3, 5, 30000),
			expense(2025, 3, 28, 20000),
		},
		Settings: core.DefaultSettings(),
	}
	agg := New(tax.Brazil2025, paid.NewTracker("2025-03"))

	s, ok := agg.Summary(ds, "2025-03")
	require.True(t, ok)
	assert.Equal(t, int64(500000), s.TotalIncome.Cents)
	assert.Equal(t, int64(50000), s.Deductions.Cents)
	assert.Equal(t, int64(450000), s.LiquidIncome.Cents)
	// 4500.00 - 607.20 = 3892.80 -> 27.5% - 908.73 = 161.79
	assert.Equal(t, int64(60720), s.Deduction.Cents)
	assert.Equal(t, int64(389280), s.TaxableIncome.Cents)
	assert.Equal(t, "0.275", s.TaxRate.String())
	assert.Equal(t, int64(16179), s.TaxOwed.Cents)
	assert.Equal(t, int64(450000-16179), s.Profit.Cents)
	assert.True(t, s.IsPaid)

	occ, ok := agg.Occupancy(ds, "2025-03")
	require.True(t, ok)
	assert.Equal(t, 27, occ) // 8 nights
}

func TestSummary_TwoDependentsScenario(t *testing.T) {
	settings := core.DefaultSettings()
	settings.Dependents = 2
	ds := Dataset{
		Reservations: []core.Reservation{reservation(t, 2025, 6, 3, 6, 1250000)}, // owner 10000.00
		Expenses:     []core.Expense{expense(2025, 6, 15, 10000)},
		Settings:     settings,
	}

	s, ok := New(tax.Brazil2025, nil).Summary(ds, "2025-06")
	require.True(t, ok)
	assert.Equal(t, int64(1000000), s.TotalIncome.Cents)
	assert.Equal(t, int64(990000), s.LiquidIncome.Cents)
	// two dependents give 379.18, below the simplified deduction
	assert.Equal(t, int64(60720), s.Deduction.Cents)
	assert.Equal(t, int64(929280), s.TaxableIncome.Cents)
	assert.Equal(t, "0.275", s.TaxRate.String())
	assert.Equal(t, int64(164679), s.TaxOwed.Cents)
	assert.Equal(t, int64(825321), s.Profit.Cents)
}

func TestSummary_ZeroActivityMonth(t *testing.T) {
	ds := Dataset{
		Expenses: []core.Expense{expense(2025, 7, 1, 0)},
		Settings: core.DefaultSettings(),
	}

	s, ok := New(tax.Brazil2025, nil).Summary(ds, "2025-07")
	require.True(t, ok)
	assert.Zero(t, s.TotalIncome.Cents)
	assert.Zero(t, s.LiquidIncome.Cents)
	assert.Equal(t, int64(60720), s.Deduction.Cents)
	assert.Zero(t, s.TaxableIncome.Cents)
	assert.Zero(t, s.TaxOwed.Cents)
	assert.Zero(t, s.Profit.Cents)
}

func TestSummary_UnknownMonth(t *testing.T) {
	agg := New(tax.Brazil2025, nil)
	_, ok := agg.Summary(Dataset{Settings: core.DefaultSettings()}, "2025-01")
	assert.False(t, ok)
	_, ok = agg.Occupancy(Dataset{}, "2025-01")
	assert.False(t, ok)
}

func TestSummary_ExpensesOnlyMonth(t *testing.T) {
	ds := Dataset{
		Expenses: []core.Expense{expense(2025, 4, 1, 10000)},
		Settings: core.DefaultSettings(),
	}
	s, ok := New(tax.Brazil2025, nil).Summary(ds, "2025-04")
	require.True(t, ok)
	assert.Equal(t, int64(-10000), s.LiquidIncome.Cents)
	assert.Equal(t, int64(0), s.TaxableIncome.Cents)
	assert.Equal(t, int64(0), s.TaxOwed.Cents)
	assert.Equal(t, int64(-10000), s.Profit.Cents)
	assert.False(t, s.IsPaid)
}

func TestSummaries_ProfitIdentity(t *testing.T) {
	ds := Dataset{
		Reservations: []core.Reservation{
			reservation(t, 2024, 12, 30, 4, 100000), // December, even though it runs into January
			reservation(t, 2025, 1, 10, 2, 900000),
		},
		Expenses: []core.Expense{expense(2025, 2, 1, 5000)},
		Settings: core.DefaultSettings(),
	}
	agg := New(tax.Brazil2025, nil)
	sums := agg.Summaries(ds)
	require.Len(t, sums, 3)
	assert.Equal(t, []core.MonthKey{"2025-02", "2025-01", "2024-12"}, agg.Months(ds))
	for _, s := range sums {
		assert.Equal(t, s.TotalIncome.Sub(s.Deductions), s.LiquidIncome, s.Month)
		assert.Equal(t, s.LiquidIncome.Sub(s.TaxOwed), s.Profit, s.Month)
		assert.GreaterOrEqual(t, s.TaxOwed.Cents, int64(0))
	}
	assert.Equal(t, core.MonthKey("2025-02"), sums[0].Month)
}

func TestSummary_DependentsLowerTax(t *testing.T) {
	base := Dataset{
		Reservations: []core.Reservation{reservation(t, 2025, 5, 1, 10, 1500000)},
		Settings:     core.DefaultSettings(),
	}
	withDeps := base
	withDeps.Settings.Dependents = 6

	agg := New(tax.Brazil2025, nil)
	a, _ := agg.Summary(base, "2025-05")
	b, _ := agg.Summary(withDeps, "2025-05")
	assert.Less(t, b.TaxOwed.Cents, a.TaxOwed.Cents)
}

func TestOccupancyRate(t *testing.T) {
	cases := map[int]int{0: 0, 1: 3, 8: 27, 15: 50, 29: 97, 30: 100, 31: 103, 45: 150}
	for nights, want := range cases {
		assert.Equal(t, want, OccupancyRate(nights), "nights=%d", nights)
	}
}

func TestYearlyProfit(t *testing.T) {
	ds := Dataset{
		Reservations: []core.Reservation{
			reservation(t, 2025, 1, 5, 2, 125000), // owner 1000.00, below the deduction
			reservation(t, 2025, 3, 5, 2, 62500),  // owner 500.00
		},
		Expenses: []core.Expense{
			expense(2024, 11, 1, 20000),
			expense(2025, 3, 9, 10000),
		},
		Settings: core.DefaultSettings(),
	}
	series := New(tax.Brazil2025, nil).YearlyProfit(ds)
	require.Len(t, series, 2)

	assert.Equal(t, 2024, series[0].Year)
	require.Len(t, series[0].Points, 12)
	assert.Equal(t, int64(0), series[0].Points[9].Cumulative.Cents)
	assert.Equal(t, int64(-20000), series[0].Points[10].Cumulative.Cents)
	assert.Equal(t, int64(-20000), series[0].Points[11].Cumulative.Cents)

	y := series[1]
	assert.Equal(t, 2025, y.Year)
	require.Len(t, y.Points, 12)
	assert.Equal(t, 1, y.Points[0].Month)
	assert.Equal(t, int64(100000), y.Points[0].Cumulative.Cents)
	assert.Equal(t, int64(100000), y.Points[1].Cumulative.Cents)
	assert.Equal(t, int64(140000), y.Points[2].Cumulative.Cents)
	assert.Equal(t, int64(140000), y.Points[11].Cumulative.Cents)
	assert.Equal(t, 12, y.Points[11].Month)
}

func TestYearlyProfit_Empty(t *testing.T) {
	assert.Empty(t, New(tax.Brazil2025, nil).YearlyProfit(Dataset{Settings: core.DefaultSettings()}))
}
