package core

import "github.com/shopspring/decimal"

// MonthlyTaxSummary is derived from the reservations and expenses of one month
// and is never edited directly. Only IsPaid is user state.
type MonthlyTaxSummary struct {
	Month         MonthKey
	TotalIncome   Money
	Deductions    Money
	LiquidIncome  Money
	Deduction     Money // dependents or simplified deduction, whichever is larger
	TaxableIncome Money
	TaxRate       decimal.Decimal
	TaxOwed       Money
	Profit        Money
	IsPaid        bool
}

// ProfitPoint is the running profit total at the end of a month.
type ProfitPoint struct {
	Month      int // 1-12
	Cumulative Money
}

// YearSeries is the cumulative profit curve of one year, always 12 points.
type YearSeries struct {
	Year   int
	Points []ProfitPoint
}
