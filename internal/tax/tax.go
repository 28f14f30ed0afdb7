// Package tax computes the monthly income tax owed on rental income.
//
// Calculators are looked up by jurisdiction, so a new tax table can be
// registered without touching the aggregation code.
package tax

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

// Jurisdiction identifies a tax table, e.g. "BR".
type Jurisdiction string

const Brazil Jurisdiction = "BR"

// Breakdown is the result of one tax calculation.
type Breakdown struct {
	Deduction     core.Money
	TaxableIncome core.Money
	Rate          decimal.Decimal
	TaxOwed       core.Money
}

// Calculator computes the tax owed on a month's liquid income.
type Calculator interface {
	CalculateTax(liquidIncome core.Money, dependents int) Breakdown
}

var ErrUnknownJurisdiction = errors.New("unknown tax jurisdiction")

// calculators maps jurisdictions to their tables.
var calculators = map[Jurisdiction]Calculator{
	Brazil: Brazil2025,
}

// Get returns the calculator registered for j.
func Get(j Jurisdiction) (Calculator, error) {
	c, ok := calculators[j]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, j)
	}
	return c, nil
}

// Register adds or replaces the calculator for j.
func Register(j Jurisdiction, c Calculator) {
	calculators[j] = c
}

// Jurisdictions lists registered jurisdictions in sorted order.
func Jurisdictions() []Jurisdiction {
	out := make([]Jurisdiction, 0, len(calculators))
	for j := range calculators {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}
