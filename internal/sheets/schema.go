package sheets

import (
	"context"
	"fmt"
)

// Range is a named range and its header.
type Range struct {
	Name    string
	Columns []string
}

var (
	SettingsRange     = Range{Name: "settings", Columns: []string{"key", "value"}}
	ReservationsRange = Range{Name: "reservations", Columns: []string{"date", "nights", "total", "income", "admin_fee", "id"}}
	ExpensesRange     = Range{Name: "expenses", Columns: []string{"date", "total", "category", "notes", "id"}}
	TaxesRange        = Range{Name: "taxes", Columns: []string{"date", "income", "deductions", "tax_rate", "tax_owed", "profit", "is_paid"}}
)

// Ranges returns every range the organizer uses.
func Ranges() []Range {
	return []Range{SettingsRange, ReservationsRange, ExpensesRange, TaxesRange}
}

// EnsureSchema creates the ranges that do not exist yet.
func EnsureSchema(ctx context.Context, s Store) error {
	for _, r := range Ranges() {
		ok, err := s.Exists(ctx, r.Name)
		if err != nil {
			return fmt.Errorf("check range %s: %w", r.Name, err)
		}
		if ok {
			continue
		}
		if err := s.Create(ctx, r.Name, r.Columns); err != nil {
			return fmt.Errorf("create range %s: %w", r.Name, err)
		}
	}
	return nil
}
