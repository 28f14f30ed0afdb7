// Package coordinator owns the organizer's local records and keeps them in
// sync with the remote spreadsheet. It drives sign-in, the full load, and
// the debounced per-collection writes that follow local edits.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcarneiro/airbnb-organizer/internal/aggregate"
	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/identity"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/metrics"
	"github.com/mcarneiro/airbnb-organizer/internal/notify"
	"github.com/mcarneiro/airbnb-organizer/internal/paid"
	"github.com/mcarneiro/airbnb-organizer/internal/scheduler"
	"github.com/mcarneiro/airbnb-organizer/internal/session"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets"
	"github.com/mcarneiro/airbnb-organizer/internal/tax"
)

type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseLoading         Phase = "loading"
	PhaseReady           Phase = "ready"
)

// Collection names a synced collection. Each maps to one remote range.
type Collection string

const (
	CollectionReservations Collection = "reservations"
	CollectionExpenses     Collection = "expenses"
	CollectionSettings     Collection = "settings"
	CollectionTaxes        Collection = "taxes"
)

var (
	// ErrAuthExpired means the token is past its expiry or the store
	// rejected it. The coordinator has already signed out when it is
	// returned.
	ErrAuthExpired    = errors.New("session expired")
	ErrNotReady       = errors.New("not ready")
	ErrNoStore        = errors.New("no spreadsheet selected")
	ErrNotFound       = errors.New("not found")
	ErrLoadInProgress = errors.New("load already in progress")
)

const (
	DefaultQuietPeriod  = time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// Options configures a Coordinator. Identity, Open and Session are required.
type Options struct {
	Identity   identity.Provider
	Open       sheets.Opener
	Session    *session.Manager
	Calculator tax.Calculator
	Clock      scheduler.Clock
	Notifier   notify.Notifier
	Metrics    *metrics.Recorder
	Logger     *log.Logger

	// QuietPeriod is how long a collection must stay untouched before it is
	// written (default: 1s).
	QuietPeriod time.Duration
	// WriteTimeout bounds a single debounced write (default: 30s).
	WriteTimeout time.Duration
}

// State is a point-in-time view of the coordinator.
type State struct {
	Phase         Phase     `json:"phase"`
	Expired       bool      `json:"expired"`
	ReadLocked    bool      `json:"read_locked"`
	Pending       []string  `json:"pending"`
	Email         string    `json:"email,omitempty"`
	SpreadsheetID string    `json:"spreadsheet_id,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
}

// Coordinator is safe for concurrent use. Its mutex is never held across
// remote calls or notifier deliveries.
type Coordinator struct {
	identity     identity.Provider
	open         sheets.Opener
	session      *session.Manager
	clock        scheduler.Clock
	debouncer    *scheduler.Debouncer
	notifier     notify.Notifier
	metrics      *metrics.Recorder
	log          *log.Logger
	syncLog      *log.StructuredLogger
	quiet        time.Duration
	writeTimeout time.Duration

	paid *paid.Tracker
	agg  *aggregate.Aggregator

	mu           sync.Mutex
	phase        Phase
	expired      bool
	readLock     bool
	store        sheets.Store
	reservations []core.Reservation
	expenses     []core.Expense
	settings     core.Settings
	lastErr      error
}

func New(opts Options) (*Coordinator, error) {
	if opts.Identity == nil || opts.Open == nil || opts.Session == nil {
		return nil, fmt.Errorf("coordinator: identity, opener and session are required")
	}
	if opts.Calculator == nil {
		calc, err := tax.Get(tax.Brazil)
		if err != nil {
			return nil, err
		}
		opts.Calculator = calc
	}
	if opts.Clock == nil {
		opts.Clock = scheduler.SystemClock()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	tracker := paid.NewTracker()
	logger := opts.Logger.WithComponent(log.ComponentCoordinator)
	return &Coordinator{
		identity:     opts.Identity,
		open:         opts.Open,
		session:      opts.Session,
		clock:        opts.Clock,
		debouncer:    scheduler.NewDebouncer(opts.Clock),
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		log:          logger,
		syncLog:      log.NewStructuredLogger(logger),
		quiet:        opts.QuietPeriod,
		writeTimeout: opts.WriteTimeout,
		paid:         tracker,
		agg:          aggregate.New(opts.Calculator, tracker),
		phase:        PhaseUnauthenticated,
		settings:     core.DefaultSettings(),
	}, nil
}

func (c *Coordinator) State() State {
	sess := c.session.Current()
	c.mu.Lock()
	st := State{
		Phase:         c.phase,
		Expired:       c.expired,
		ReadLocked:    c.readLock,
		Email:         sess.Email,
		SpreadsheetID: sess.SpreadsheetID,
		ExpiresAt:     sess.ExpiresAt,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()
	st.Pending = c.debouncer.PendingKeys()
	return st
}

// Ready reports whether the coordinator is in the Ready phase.
func (c *Coordinator) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseReady
}

// Restore picks up a persisted session. A valid token with a known
// spreadsheet goes straight to a load. An expired one is cleared and
// reported as a session expiry.
func (c *Coordinator) Restore(ctx context.Context) error {
	sess, err := c.session.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	switch {
	case sess.Token == "":
		c.log.InfoContext(ctx, "no persisted session", log.FieldOperation, log.OpRestore)
		return nil
	case !sess.Valid(c.clock.Now()):
		c.log.WarnContext(ctx, "persisted session expired",
			log.FieldOperation, log.OpRestore,
			log.FieldExpiresAt, sess.ExpiresAt)
		c.expire(ctx, "persisted session expired")
		return nil
	}

	c.log.InfoContext(ctx, "session restored",
		log.FieldOperation, log.OpRestore,
		log.FieldExpiresAt, sess.ExpiresAt)
	c.setPhase(ctx, PhaseAuthenticating)
	if sess.SpreadsheetID == "" {
		return nil
	}
	return c.openAndLoad(ctx, sess.SpreadsheetID)
}

// SignIn asks the identity provider for a token. On success the phase moves
// to Loading when a spreadsheet is already selected, and otherwise waits in
// Authenticating for SetStoreID. On failure the phase goes back to where it
// was.
func (c *Coordinator) SignIn(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseLoading || c.readLock {
		c.mu.Unlock()
		return ErrLoadInProgress
	}
	prev := c.phase
	c.mu.Unlock()
	c.setPhase(ctx, PhaseAuthenticating)

	tok, err := c.identity.SignIn(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "sign-in failed", log.FieldOperation, log.OpSignIn, log.FieldError, err)
		c.setPhase(ctx, prev)
		return fmt.Errorf("sign in: %w", err)
	}

	sess, err := c.session.Begin(ctx, tok.AccessToken, tok.ExpiresIn)
	if err != nil {
		c.log.WarnContext(ctx, "failed to persist session", log.FieldOperation, log.OpSignIn, log.FieldError, err)
	}
	if info, err := c.identity.UserInfo(ctx, tok.AccessToken); err != nil {
		c.log.WarnContext(ctx, "failed to resolve user", log.FieldOperation, log.OpSignIn, log.FieldError, err)
	} else if err := c.session.SetEmail(ctx, info.Email); err != nil {
		c.log.WarnContext(ctx, "failed to persist email", log.FieldOperation, log.OpSignIn, log.FieldError, err)
	}

	c.mu.Lock()
	c.expired = false
	c.mu.Unlock()

	c.log.InfoContext(ctx, "signed in",
		log.FieldOperation, log.OpSignIn,
		log.FieldExpiresAt, sess.ExpiresAt)

	if id := c.session.Current().SpreadsheetID; id != "" {
		return c.openAndLoad(ctx, id)
	}
	return nil
}

// SignOut drops the token, pending writes and every local record. The
// spreadsheet selection is kept for the next sign-in.
func (c *Coordinator) SignOut(ctx context.Context) error {
	c.debouncer.CancelAll()
	c.mu.Lock()
	c.expired = false
	c.store = nil
	c.reservations = nil
	c.expenses = nil
	c.settings = core.DefaultSettings()
	c.lastErr = nil
	c.mu.Unlock()
	c.paid.Replace(nil)
	c.setPhase(ctx, PhaseUnauthenticated)

	c.log.InfoContext(ctx, "signed out", log.FieldOperation, log.OpSignOut)
	if err := c.session.Clear(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// SetStoreID selects the spreadsheet to sync with. With a usable token the
// spreadsheet is opened and loaded right away; otherwise the choice is only
// remembered.
func (c *Coordinator) SetStoreID(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: spreadsheet id is required", core.ErrValidation)
	}
	if err := c.session.SetSpreadsheetID(ctx, id); err != nil {
		c.log.WarnContext(ctx, "failed to persist spreadsheet id", log.FieldSpreadsheetID, id, log.FieldError, err)
	}

	c.mu.Lock()
	phase := c.phase
	c.mu.Unlock()
	switch phase {
	case PhaseLoading:
		return ErrLoadInProgress
	case PhaseUnauthenticated:
		return nil
	}
	// Writes still pending belong to the previous spreadsheet.
	c.debouncer.CancelAll()
	return c.openAndLoad(ctx, id)
}

func (c *Coordinator) openAndLoad(ctx context.Context, id string) error {
	store, err := c.open(ctx, id)
	if err != nil {
		if isAuthError(err) {
			c.expire(ctx, err.Error())
			return fmt.Errorf("open spreadsheet: %w: %w", ErrAuthExpired, err)
		}
		c.setLastError(err)
		return fmt.Errorf("open spreadsheet %s: %w", id, err)
	}
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
	return c.Load(ctx)
}

// Reload runs a full load, but only from the Ready phase.
func (c *Coordinator) Reload(ctx context.Context) error {
	if !c.Ready() {
		return ErrNotReady
	}
	return c.Load(ctx)
}

// Close cancels pending writes. Writes already running finish on their own.
func (c *Coordinator) Close() {
	c.debouncer.Close()
}

func (c *Coordinator) setPhase(ctx context.Context, p Phase) {
	c.mu.Lock()
	changed := c.phase != p
	c.phase = p
	c.mu.Unlock()
	if changed {
		c.emit(ctx, notify.EventPhaseChanged, "", "")
	}
}

func (c *Coordinator) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Coordinator) emit(ctx context.Context, t notify.EventType, coll Collection, msg string) {
	e := notify.NewEvent(t, c.clock.Now())
	c.mu.Lock()
	e.Phase = string(c.phase)
	c.mu.Unlock()
	e.Collection = string(coll)
	e.Message = msg
	if err := c.notifier.Notify(ctx, e); err != nil {
		c.log.WarnContext(ctx, "notification failed", log.FieldEventType, string(t), log.FieldError, err)
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, ErrAuthExpired) ||
		errors.Is(err, sheets.ErrUnauthenticated) ||
		errors.Is(err, identity.ErrTokenExpired) ||
		errors.Is(err, session.ErrExpired)
}
