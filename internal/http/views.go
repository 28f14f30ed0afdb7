package http

import (
	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

// Amounts are rendered as fixed two-decimal strings so clients never see
// float rounding.

type reservationView struct {
	ID          string `json:"id"`
	CheckIn     string `json:"check_in"`
	Nights      int    `json:"nights"`
	Total       string `json:"total"`
	OwnerAmount string `json:"owner_amount"`
	AdminFee    string `json:"admin_fee"`
}

func newReservationView(r core.Reservation) reservationView {
	return reservationView{
		ID:          r.ID,
		CheckIn:     r.CheckIn.String(),
		Nights:      r.Nights,
		Total:       r.Total.String(),
		OwnerAmount: r.OwnerAmount.String(),
		AdminFee:    r.AdminFee.String(),
	}
}

type expenseView struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Category string `json:"category,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:       e.ID,
		Date:     e.Date.String(),
		Amount:   e.Amount.String(),
		Category: string(e.Category),
		Notes:    e.Notes,
	}
}

type settingsView struct {
	Dependents int    `json:"dependents"`
	OwnerSplit string `json:"owner_split"`
	AdminSplit string `json:"admin_split"`
}

func newSettingsView(s core.Settings) settingsView {
	return settingsView{
		Dependents: s.Dependents,
		OwnerSplit: s.OwnerSplit.String(),
		AdminSplit: s.AdminSplit.String(),
	}
}

type summaryView struct {
	Month         string `json:"month"`
	TotalIncome   string `json:"total_income"`
	Deductions    string `json:"deductions"`
	LiquidIncome  string `json:"liquid_income"`
	Deduction     string `json:"deduction"`
	TaxableIncome string `json:"taxable_income"`
	TaxRate       string `json:"tax_rate"` // percent
	TaxOwed       string `json:"tax_owed"`
	Profit        string `json:"profit"`
	IsPaid        bool   `json:"is_paid"`
}

func newSummaryView(s core.MonthlyTaxSummary) summaryView {
	return summaryView{
		Month:         s.Month.String(),
		TotalIncome:   s.TotalIncome.String(),
		Deductions:    s.Deductions.String(),
		LiquidIncome:  s.LiquidIncome.String(),
		Deduction:     s.Deduction.String(),
		TaxableIncome: s.TaxableIncome.String(),
		TaxRate:       s.TaxRate.String(),
		TaxOwed:       s.TaxOwed.String(),
		Profit:        s.Profit.String(),
		IsPaid:        s.IsPaid,
	}
}

type profitPointView struct {
	Month      int    `json:"month"`
	Cumulative string `json:"cumulative"`
}

type yearSeriesView struct {
	Year   int               `json:"year"`
	Points []profitPointView `json:"points"`
}

func newYearSeriesView(y core.YearSeries) yearSeriesView {
	v := yearSeriesView{Year: y.Year, Points: make([]profitPointView, 0, len(y.Points))}
	for _, p := range y.Points {
		v.Points = append(v.Points, profitPointView{Month: p.Month, Cumulative: p.Cumulative.String()})
	}
	return v
}

func mapViews[T, V any](in []T, f func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, x := range in {
		out = append(out, f(x))
	}
	return out
}
