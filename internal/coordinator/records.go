package coordinator

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/mcarneiro/airbnb-organizer/internal/aggregate"
	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
)

// AddReservation records a stay. The owner and administrator shares are
// fixed with the settings in effect now.
func (c *Coordinator) AddReservation(checkIn core.Date, nights int, total core.Money) (core.Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := core.NewReservation(checkIn, nights, total, c.settings)
	if err != nil {
		return core.Reservation{}, err
	}
	c.reservations = append(c.reservations, r)
	c.scheduleLocked(CollectionReservations)
	return r, nil
}

// UpdateReservation changes a stay. The shares are recomputed with the
// current settings only when the total changes.
func (c *Coordinator) UpdateReservation(id string, checkIn core.Date, nights int, total core.Money) (core.Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.reservations, func(r core.Reservation) bool { return r.ID == id })
	if i < 0 {
		return core.Reservation{}, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	r := c.reservations[i]
	r.CheckIn = checkIn
	r.Nights = nights
	if total != r.Total {
		if err := c.settings.Validate(); err != nil {
			return core.Reservation{}, err
		}
		r.Total = total
		r.OwnerAmount, r.AdminFee = core.SplitTotal(total, c.settings)
	}
	if err := r.Validate(); err != nil {
		return core.Reservation{}, err
	}
	c.reservations[i] = r
	c.scheduleLocked(CollectionReservations)
	return r, nil
}

func (c *Coordinator) DeleteReservation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.reservations, func(r core.Reservation) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	c.reservations = slices.Delete(c.reservations, i, i+1)
	c.scheduleLocked(CollectionReservations)
	return nil
}

// AddExpense records an expense, minting an ID when e has none.
func (c *Coordinator) AddExpense(e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.ContainsFunc(c.expenses, func(x core.Expense) bool { return x.ID == e.ID }) {
		return core.Expense{}, fmt.Errorf("%w: duplicate expense id %s", core.ErrValidation, e.ID)
	}
	c.expenses = append(c.expenses, e)
	c.scheduleLocked(CollectionExpenses)
	return e, nil
}

func (c *Coordinator) UpdateExpense(id string, e core.Expense) (core.Expense, error) {
	e.ID = id
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.expenses, func(x core.Expense) bool { return x.ID == id })
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	c.expenses[i] = e
	c.scheduleLocked(CollectionExpenses)
	return e, nil
}

func (c *Coordinator) DeleteExpense(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.expenses, func(x core.Expense) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	c.expenses = slices.Delete(c.expenses, i, i+1)
	c.scheduleLocked(CollectionExpenses)
	return nil
}

// UpdateSettings replaces the settings. Existing reservations keep the
// shares they were created with.
func (c *Coordinator) UpdateSettings(s core.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
	c.scheduleLocked(CollectionSettings)
	return nil
}

// MarkPaid flags month as paid. Only months with records can be flagged,
// since the paid flag is persisted on the month's tax row. Tax rows are
// written only when the paid set actually changed.
func (c *Coordinator) MarkPaid(ctx context.Context, month string) (bool, error) {
	return c.setPaid(ctx, month, true)
}

// MarkUnpaid clears the paid flag. It accepts months without records so a
// stale flag can always be cleared.
func (c *Coordinator) MarkUnpaid(ctx context.Context, month string) (bool, error) {
	return c.setPaid(ctx, month, false)
}

func (c *Coordinator) setPaid(ctx context.Context, month string, paid bool) (bool, error) {
	key, err := core.ParseMonthKey(month)
	if err != nil {
		return false, err
	}
	var changed bool
	if paid {
		if _, ok := c.agg.Summary(c.snapshot(), key); !ok {
			return false, fmt.Errorf("month %s: %w", key, ErrNotFound)
		}
		changed = c.paid.MarkPaid(key)
	} else {
		changed = c.paid.MarkUnpaid(key)
	}
	if !changed {
		return false, nil
	}
	c.log.InfoContext(ctx, "paid state changed",
		log.FieldOperation, log.OpMarkPaid,
		log.FieldMonth, key.String(),
		"paid", paid)
	c.mu.Lock()
	c.scheduleLocked(CollectionTaxes)
	c.mu.Unlock()
	return true, nil
}

func (c *Coordinator) datasetLocked() aggregate.Dataset {
	return aggregate.Dataset{
		Reservations: c.reservations,
		Expenses:     c.expenses,
		Settings:     c.settings,
	}
}

// snapshot copies the records so aggregation can run without the lock.
func (c *Coordinator) snapshot() aggregate.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return aggregate.Dataset{
		Reservations: slices.Clone(c.reservations),
		Expenses:     slices.Clone(c.expenses),
		Settings:     c.settings,
	}
}

// Summaries returns a summary per month with records, newest first.
func (c *Coordinator) Summaries() []core.MonthlyTaxSummary {
	return c.agg.Summaries(c.snapshot())
}

func (c *Coordinator) Summary(month string) (core.MonthlyTaxSummary, error) {
	key, err := core.ParseMonthKey(month)
	if err != nil {
		return core.MonthlyTaxSummary{}, err
	}
	s, ok := c.agg.Summary(c.snapshot(), key)
	if !ok {
		return core.MonthlyTaxSummary{}, fmt.Errorf("month %s: %w", key, ErrNotFound)
	}
	return s, nil
}

func (c *Coordinator) Months() []core.MonthKey {
	return c.agg.Months(c.snapshot())
}

func (c *Coordinator) Occupancy(month string) (int, error) {
	key, err := core.ParseMonthKey(month)
	if err != nil {
		return 0, err
	}
	pct, ok := c.agg.Occupancy(c.snapshot(), key)
	if !ok {
		return 0, fmt.Errorf("month %s: %w", key, ErrNotFound)
	}
	return pct, nil
}

func (c *Coordinator) YearlyProfit() []core.YearSeries {
	return c.agg.YearlyProfit(c.snapshot())
}

// Reservations returns the stays ordered by check-in date.
func (c *Coordinator) Reservations() []core.Reservation {
	out := c.snapshot().Reservations
	slices.SortStableFunc(out, func(a, b core.Reservation) int { return a.CheckIn.Compare(b.CheckIn.Time) })
	return out
}

// Expenses returns the expenses ordered by date.
func (c *Coordinator) Expenses() []core.Expense {
	out := c.snapshot().Expenses
	slices.SortStableFunc(out, func(a, b core.Expense) int { return a.Date.Compare(b.Date.Time) })
	return out
}

func (c *Coordinator) Settings() core.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *Coordinator) PaidMonths() []core.MonthKey {
	return c.paid.All()
}
