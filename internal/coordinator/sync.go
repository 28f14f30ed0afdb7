package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/metrics"
	"github.com/mcarneiro/airbnb-organizer/internal/notify"
	"github.com/mcarneiro/airbnb-organizer/internal/session"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets"
)

// Load reads every range and replaces the local collections with what it
// finds. The read-lock is held for the whole load so edits made meanwhile do
// not trigger writes. Collections are replaced as they are read: when a later
// range fails, the earlier ones are already updated.
//
// An auth failure signs the user out and returns ErrAuthExpired. Any other
// failure still ends in Ready and is returned.
func (c *Coordinator) Load(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.store == nil:
		c.mu.Unlock()
		return ErrNoStore
	case c.readLock:
		c.mu.Unlock()
		return ErrLoadInProgress
	}
	store := c.store
	c.readLock = true
	c.mu.Unlock()

	if err := c.checkToken(); err != nil {
		c.mu.Lock()
		c.readLock = false
		c.mu.Unlock()
		if errors.Is(err, ErrAuthExpired) {
			c.expire(ctx, err.Error())
		}
		return err
	}

	c.setPhase(ctx, PhaseLoading)
	c.log.InfoContext(ctx, "load started", log.FieldOperation, log.OpLoad)

	start := c.clock.Now()
	err := c.load(ctx, store)
	elapsed := c.clock.Now().Sub(start)

	c.mu.Lock()
	c.readLock = false
	stillLoading := c.phase == PhaseLoading
	c.mu.Unlock()

	if err != nil {
		if isAuthError(err) {
			c.metrics.Load(metrics.ResultExpired, elapsed)
			c.expire(ctx, err.Error())
			if errors.Is(err, ErrAuthExpired) {
				return fmt.Errorf("load: %w", err)
			}
			return fmt.Errorf("load: %w: %w", ErrAuthExpired, err)
		}
		c.metrics.Load(metrics.ResultError, elapsed)
		c.setLastError(err)
		c.syncLog.LogSyncFailure(ctx, log.OpLoad, string(PhaseLoading), "", err)
		if stillLoading {
			c.setPhase(ctx, PhaseReady)
		}
		c.emit(ctx, notify.EventSyncFailed, "", err.Error())
		return fmt.Errorf("load: %w", err)
	}

	c.metrics.Load(metrics.ResultOK, elapsed)
	c.setLastError(nil)
	c.log.InfoContext(ctx, "load finished",
		log.FieldOperation, log.OpLoad,
		log.FieldDuration, elapsed.Milliseconds())
	if stillLoading {
		c.setPhase(ctx, PhaseReady)
	}
	return nil
}

func (c *Coordinator) load(ctx context.Context, store sheets.Store) error {
	if err := sheets.EnsureSchema(ctx, store); err != nil {
		return err
	}

	rows, err := c.read(ctx, store, sheets.SettingsRange)
	if err != nil {
		return err
	}
	settings, skipped := sheets.DecodeSettings(rows)
	c.skipped(ctx, sheets.SettingsRange, len(rows), skipped)
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()

	if rows, err = c.read(ctx, store, sheets.ReservationsRange); err != nil {
		return err
	}
	reservations, skipped := sheets.DecodeReservations(rows)
	c.skipped(ctx, sheets.ReservationsRange, len(reservations), skipped)
	c.mu.Lock()
	c.reservations = reservations
	c.mu.Unlock()

	if rows, err = c.read(ctx, store, sheets.ExpensesRange); err != nil {
		return err
	}
	expenses, skipped := sheets.DecodeExpenses(rows)
	c.skipped(ctx, sheets.ExpensesRange, len(expenses), skipped)
	c.mu.Lock()
	c.expenses = expenses
	c.mu.Unlock()

	if rows, err = c.read(ctx, store, sheets.TaxesRange); err != nil {
		return err
	}
	months, skipped := sheets.DecodePaidMonths(rows)
	c.skipped(ctx, sheets.TaxesRange, len(months), skipped)
	c.paid.Replace(months)
	return nil
}

func (c *Coordinator) read(ctx context.Context, store sheets.Store, r sheets.Range) ([][]any, error) {
	if err := c.checkToken(); err != nil {
		return nil, err
	}
	rows, err := store.ReadRange(ctx, r.Name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Name, err)
	}
	return rows, nil
}

func (c *Coordinator) skipped(ctx context.Context, r sheets.Range, kept, skipped int) {
	if skipped == 0 {
		return
	}
	c.metrics.MalformedRows(r.Name, skipped)
	c.log.WarnContext(ctx, "skipped malformed rows",
		log.NewFields().WithOperation(log.OpLoad).WithRows(r.Name, kept, skipped).ToSlice()...)
}

// checkToken returns ErrAuthExpired once the session token is past its
// expiry and ErrNotReady when there is no token at all.
func (c *Coordinator) checkToken() error {
	_, err := c.session.Token()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrExpired):
		return fmt.Errorf("%w: %w", ErrAuthExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
}

// scheduleLocked queues a debounced write for coll. It must be called with
// c.mu held. Nothing is queued while a load holds the read-lock or the
// coordinator is not Ready.
func (c *Coordinator) scheduleLocked(coll Collection) {
	if c.readLock || c.phase != PhaseReady {
		c.metrics.Suppressed(string(coll))
		c.log.Debug("write suppressed", log.FieldCollection, string(coll), log.FieldPhase, string(c.phase))
		return
	}
	c.debouncer.Schedule(string(coll), c.quiet, func() { c.flush(coll) })
}

// flush writes coll as a full replacement of its range. A load may have
// started between scheduling and firing, so suppression is checked again.
func (c *Coordinator) flush(coll Collection) {
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()

	c.mu.Lock()
	if c.readLock || c.phase != PhaseReady || c.store == nil {
		phase := c.phase
		c.mu.Unlock()
		c.metrics.Suppressed(string(coll))
		c.log.DebugContext(ctx, "write suppressed at fire time", log.FieldCollection, string(coll), log.FieldPhase, string(phase))
		return
	}
	store := c.store
	rng, rows := c.encodeLocked(coll)
	c.mu.Unlock()

	if err := c.checkToken(); err != nil {
		c.metrics.Write(string(coll), metrics.ResultExpired)
		c.expire(ctx, err.Error())
		return
	}

	err := store.ClearRange(ctx, rng.Name)
	if err == nil {
		err = store.WriteRange(ctx, rng.Name, rows)
	}
	if err != nil {
		if isAuthError(err) {
			c.metrics.Write(string(coll), metrics.ResultExpired)
			c.expire(ctx, err.Error())
			return
		}
		c.metrics.Write(string(coll), metrics.ResultError)
		c.setLastError(err)
		c.syncLog.LogSyncFailure(ctx, log.OpWrite, string(PhaseReady), string(coll), err)
		c.emit(ctx, notify.EventSyncFailed, coll, err.Error())
		return
	}

	c.metrics.Write(string(coll), metrics.ResultOK)
	c.log.DebugContext(ctx, "collection written",
		log.FieldOperation, log.OpWrite,
		log.FieldCollection, string(coll),
		log.FieldRows, len(rows))
	c.emit(ctx, notify.EventSyncWritten, coll, "")
}

func (c *Coordinator) encodeLocked(coll Collection) (sheets.Range, [][]any) {
	switch coll {
	case CollectionReservations:
		return sheets.ReservationsRange, sheets.EncodeReservations(c.reservations)
	case CollectionExpenses:
		return sheets.ExpensesRange, sheets.EncodeExpenses(c.expenses)
	case CollectionSettings:
		return sheets.SettingsRange, sheets.EncodeSettings(c.settings)
	default:
		return sheets.TaxesRange, sheets.EncodeTaxRows(c.agg.Summaries(c.datasetLocked()))
	}
}

// expire forces the user out after an auth failure. Pending writes are
// dropped and the token is cleared; local records stay until the next load.
func (c *Coordinator) expire(ctx context.Context, reason string) {
	c.mu.Lock()
	if c.phase == PhaseUnauthenticated && c.expired {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseUnauthenticated
	c.expired = true
	c.mu.Unlock()

	c.debouncer.CancelAll()
	if err := c.session.Clear(ctx); err != nil {
		c.log.WarnContext(ctx, "failed to clear session", log.FieldOperation, log.OpExpire, log.FieldError, err)
	}
	c.metrics.SessionExpired()
	c.log.WarnContext(ctx, "session expired", log.FieldOperation, log.OpExpire, "reason", reason)
	c.emit(ctx, notify.EventSessionExpired, "", reason)
}
