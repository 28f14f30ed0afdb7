// Package aggregate derives monthly tax summaries, occupancy and yearly
// profit curves from reservations and expenses. Nothing here is stored; every
// value is recomputed from the records it is given.
package aggregate

import (
	"sort"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/tax"
)

// PaidLookup reports whether a month's tax was paid.
type PaidLookup interface {
	IsPaid(month core.MonthKey) bool
}

// Dataset is a snapshot of the records summaries are computed from.
type Dataset struct {
	Reservations []core.Reservation
	Expenses     []core.Expense
	Settings     core.Settings
}

type Aggregator struct {
	calc tax.Calculator
	paid PaidLookup
}

// New returns an aggregator. A nil paid lookup treats every month as unpaid.
func New(calc tax.Calculator, paid PaidLookup) *Aggregator {
	return &Aggregator{calc: calc, paid: paid}
}

type bucket struct {
	income     core.Money
	deductions core.Money
	nights     int
}

// group buckets records by month key. Only months with at least one
// reservation or expense get a bucket.
func group(ds Dataset) map[core.MonthKey]*bucket {
	out := make(map[core.MonthKey]*bucket)
	get := func(k core.MonthKey) *bucket {
		b, ok := out[k]
		if !ok {
			b = &bucket{}
			out[k] = b
		}
		return b
	}
	for _, r := range ds.Reservations {
		b := get(r.CheckIn.MonthKey())
		b.income = b.income.Add(r.OwnerAmount)
		b.nights += r.Nights
	}
	for _, e := range ds.Expenses {
		b := get(e.Date.MonthKey())
		b.deductions = b.deductions.Add(e.Amount)
	}
	return out
}

// Months returns the months that have records, newest first.
func (a *Aggregator) Months(ds Dataset) []core.MonthKey {
	groups := group(ds)
	out := make([]core.MonthKey, 0, len(groups))
	for k := range groups {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// Summaries returns one summary per month with records, newest first.
func (a *Aggregator) Summaries(ds Dataset) []core.MonthlyTaxSummary {
	groups := group(ds)
	out := make([]core.MonthlyTaxSummary, 0, len(groups))
	for k, b := range groups {
		out = append(out, a.summarize(k, b, ds.Settings.Dependents))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// Summary returns the summary for one month, or false when the month has no
// records.
func (a *Aggregator) Summary(ds Dataset, month core.MonthKey) (core.MonthlyTaxSummary, bool) {
	b, ok := group(ds)[month]
	if !ok {
		return core.MonthlyTaxSummary{}, false
	}
	return a.summarize(month, b, ds.Settings.Dependents), true
}

func (a *Aggregator) summarize(month core.MonthKey, b *bucket, dependents int) core.MonthlyTaxSummary {
	liquid := b.income.Sub(b.deductions)
	br := a.calc.CalculateTax(liquid, dependents)
	return core.MonthlyTaxSummary{
		Month:         month,
		TotalIncome:   b.income,
		Deductions:    b.deductions,
		LiquidIncome:  liquid,
		Deduction:     br.Deduction,
		TaxableIncome: br.TaxableIncome,
		TaxRate:       br.Rate,
		TaxOwed:       br.TaxOwed,
		Profit:        liquid.Sub(br.TaxOwed),
		IsPaid:        a.paid != nil && a.paid.IsPaid(month),
	}
}

// Occupancy returns the occupancy percentage of a month, or false when the
// month has no records.
func (a *Aggregator) Occupancy(ds Dataset, month core.MonthKey) (int, bool) {
	b, ok := group(ds)[month]
	if !ok {
		return 0, false
	}
	return OccupancyRate(b.nights), true
}

// OccupancyRate is round(nights / 30 * 100) with halves rounded up. It is
// not capped, so a month with more than 30 booked nights exceeds 100.
func OccupancyRate(nights int) int {
	if nights <= 0 {
		return 0
	}
	return (nights*200 + 30) / 60
}

// YearlyProfit returns a cumulative profit series for every year that has at
// least one month with records, oldest year first. Months without records
// add nothing to the running total.
func (a *Aggregator) YearlyProfit(ds Dataset) []core.YearSeries {
	profit := make(map[int]*[12]core.Money)
	for _, s := range a.Summaries(ds) {
		y := s.Month.Year()
		months, ok := profit[y]
		if !ok {
			months = &[12]core.Money{}
			profit[y] = months
		}
		months[s.Month.Month()-1] = s.Profit
	}

	years := make([]int, 0, len(profit))
	for y := range profit {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]core.YearSeries, 0, len(years))
	for _, y := range years {
		series := core.YearSeries{Year: y, Points: make([]core.ProfitPoint, 12)}
		var running core.Money
		for m, p := range profit[y] {
			running = running.Add(p)
			series.Points[m] = core.ProfitPoint{Month: m + 1, Cumulative: running}
		}
		out = append(out, series)
	}
	return out
}
