package tax

import (
	"github.com/shopspring/decimal"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

// Bracket applies Rate to taxable income up to and including UpperBound,
// then subtracts Deduction.
type Bracket struct {
	UpperBound core.Money
	Unbounded  bool
	Rate       decimal.Decimal
	Deduction  core.Money
}

// Progressive is a bracket table with a per-dependent deduction and a
// simplified minimum deduction, whichever is larger.
type Progressive struct {
	PerDependent     core.Money
	MinimumDeduction core.Money
	Brackets         []Bracket // ascending; the last one should be Unbounded
}

// Brazil2025 is the monthly IRPF table in force from May 2025.
var Brazil2025 = Progressive{
	PerDependent:     core.Money{Cents: 18959},
	MinimumDeduction: core.Money{Cents: 60720},
	Brackets: []Bracket{
		{UpperBound: core.Money{Cents: 242881}, Rate: decimal.RequireFromString("0.075"), Deduction: core.Money{Cents: 18216}},
		{UpperBound: core.Money{Cents: 282666}, Rate: decimal.RequireFromString("0.15"), Deduction: core.Money{Cents: 39416}},
		{UpperBound: core.Money{Cents: 375105}, Rate: decimal.RequireFromString("0.225"), Deduction: core.Money{Cents: 67549}},
		{UpperBound: core.Money{Cents: 466468}, Rate: decimal.RequireFromString("0.275"), Deduction: core.Money{Cents: 90873}},
		{Unbounded: true, Rate: decimal.RequireFromString("0.275"), Deduction: core.Money{Cents: 90873}},
	},
}

// CalculateTax never returns a negative amount. Taxable income equal to a
// bracket's upper bound belongs to that bracket.
func (p Progressive) CalculateTax(liquidIncome core.Money, dependents int) Breakdown {
	deduction := core.Money{Cents: p.PerDependent.Cents * int64(dependents)}
	if deduction.Cents < p.MinimumDeduction.Cents {
		deduction = p.MinimumDeduction
	}
	taxable := liquidIncome.Sub(deduction)
	if taxable.Cents < 0 {
		taxable = core.Money{}
	}

	b := p.bracketFor(taxable)
	owed := taxable.Decimal().Mul(b.Rate).Sub(b.Deduction.Decimal())
	if owed.IsNegative() {
		owed = decimal.Zero
	}
	return Breakdown{
		Deduction:     deduction,
		TaxableIncome: taxable,
		Rate:          b.Rate,
		TaxOwed:       core.MoneyFromDecimal(owed),
	}
}

func (p Progressive) bracketFor(taxable core.Money) Bracket {
	for _, b := range p.Brackets {
		if b.Unbounded || taxable.Cents <= b.UpperBound.Cents {
			return b
		}
	}
	if len(p.Brackets) == 0 {
		return Bracket{Unbounded: true}
	}
	return p.Brackets[len(p.Brackets)-1]
}
