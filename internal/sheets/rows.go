package sheets

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

const (
	settingDependents = "dependents"
	settingOwnerSplit = "owner_split"
	settingAdminSplit = "admin_split"
)

// EncodeSettings writes settings as key/value rows.
func EncodeSettings(s core.Settings) [][]any {
	return [][]any{
		{settingDependents, float64(s.Dependents)},
		{settingOwnerSplit, s.OwnerSplit.InexactFloat64()},
		{settingAdminSplit, s.AdminSplit.InexactFloat64()},
	}
}

// DecodeSettings starts from the defaults and applies the rows it
// understands. It returns the number of rows it had to skip. When the stored
// splits do not form a valid pair, the default split is kept and both rows
// count as skipped.
func DecodeSettings(rows [][]any) (core.Settings, int) {
	s := core.DefaultSettings()
	skipped := 0
	var owner, admin *decimal.Decimal
	for _, row := range rows {
		key := cellString(safeGet(row, 0))
		val := safeGet(row, 1)
		switch key {
		case "":
			continue
		case settingDependents:
			n, ok := cellInt(val)
			if !ok || n < 0 {
				skipped++
				continue
			}
			s.Dependents = n
		case settingOwnerSplit, settingAdminSplit:
			d, ok := cellDecimal(val)
			if !ok {
				skipped++
				continue
			}
			d = d.Round(4)
			if key == settingOwnerSplit {
				owner = &d
			} else {
				admin = &d
			}
		}
	}

	next := s
	switch {
	case owner != nil && admin != nil:
		next.OwnerSplit, next.AdminSplit = *owner, *admin
	case owner != nil:
		next.OwnerSplit, next.AdminSplit = *owner, decimal.NewFromInt(1).Sub(*owner)
	case admin != nil:
		next.OwnerSplit, next.AdminSplit = decimal.NewFromInt(1).Sub(*admin), *admin
	}
	if err := next.Validate(); err != nil {
		if owner != nil {
			skipped++
		}
		if admin != nil {
			skipped++
		}
		return s, skipped
	}
	return next, skipped
}

func EncodeReservations(rs []core.Reservation) [][]any {
	rows := make([][]any, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []any{
			r.CheckIn.String(),
			float64(r.Nights),
			r.Total.Float64(),
			r.OwnerAmount.Float64(),
			r.AdminFee.Float64(),
			r.ID,
		})
	}
	return rows
}

// DecodeReservations skips rows with an unreadable date, non-positive nights
// or unreadable amounts. Rows written before IDs existed get a fresh one.
func DecodeReservations(rows [][]any) ([]core.Reservation, int) {
	out := make([]core.Reservation, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if blank(row) {
			continue
		}
		date, ok := cellDate(safeGet(row, 0))
		if !ok {
			skipped++
			continue
		}
		nights, ok := cellInt(safeGet(row, 1))
		if !ok || nights <= 0 {
			skipped++
			continue
		}
		total, okT := cellMoney(safeGet(row, 2))
		income, okI := cellMoney(safeGet(row, 3))
		fee, okF := cellMoney(safeGet(row, 4))
		if !okT || !okI || !okF {
			skipped++
			continue
		}
		r := core.Reservation{
			ID:          cellString(safeGet(row, 5)),
			CheckIn:     date,
			Nights:      nights,
			Total:       total,
			OwnerAmount: income,
			AdminFee:    fee,
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		out = append(out, r)
	}
	return out, skipped
}

func EncodeExpenses(es []core.Expense) [][]any {
	rows := make([][]any, 0, len(es))
	for _, e := range es {
		rows = append(rows, []any{
			e.Date.String(),
			e.Amount.Float64(),
			string(e.Category),
			e.Notes,
			e.ID,
		})
	}
	return rows
}

// DecodeExpenses skips rows with an unreadable date or amount. Categories
// that are not recognized are read as "other".
func DecodeExpenses(rows [][]any) ([]core.Expense, int) {
	out := make([]core.Expense, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if blank(row) {
			continue
		}
		date, ok := cellDate(safeGet(row, 0))
		if !ok {
			skipped++
			continue
		}
		amount, ok := cellMoney(safeGet(row, 1))
		if !ok {
			skipped++
			continue
		}
		cat, err := core.ParseCategory(cellString(safeGet(row, 2)))
		if err != nil {
			cat = core.CategoryOther
		}
		e := core.Expense{
			ID:       cellString(safeGet(row, 4)),
			Date:     date,
			Amount:   amount,
			Category: cat,
			Notes:    cellString(safeGet(row, 3)),
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		out = append(out, e)
	}
	return out, skipped
}

// EncodeTaxRows writes one row per summary. The rate is stored as a
// percentage, e.g. 27.5.
func EncodeTaxRows(ss []core.MonthlyTaxSummary) [][]any {
	rows := make([][]any, 0, len(ss))
	hundred := decimal.NewFromInt(100)
	for _, s := range ss {
		rows = append(rows, []any{
			s.Month.String(),
			s.TotalIncome.Float64(),
			s.Deductions.Float64(),
			s.TaxRate.Mul(hundred).InexactFloat64(),
			s.TaxOwed.Float64(),
			s.Profit.Float64(),
			s.IsPaid,
		})
	}
	return rows
}

// DecodePaidMonths returns the months whose tax row is flagged as paid. The
// other columns are derived values and are recomputed after a load.
func DecodePaidMonths(rows [][]any) ([]core.MonthKey, int) {
	var out []core.MonthKey
	skipped := 0
	seen := make(map[core.MonthKey]bool)
	for _, row := range rows {
		if blank(row) {
			continue
		}
		k, ok := cellMonth(safeGet(row, 0))
		if !ok {
			skipped++
			continue
		}
		if !cellBool(safeGet(row, 6)) || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, skipped
}

func blank(row []any) bool {
	for _, v := range row {
		if cellString(v) != "" {
			return false
		}
	}
	return true
}
