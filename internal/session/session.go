// Package session keeps the signed-in user's access token, its expiry and
// the selected spreadsheet, and persists them across restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	keyToken         = "session.token"
	keyExpiresAt     = "session.expires_at"
	keyEmail         = "session.email"
	keySpreadsheetID = "session.spreadsheet_id"
)

var (
	ErrNoSession = errors.New("no active session")
	ErrExpired   = errors.New("session expired")
)

// KV is the persistence the manager writes through to.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Session struct {
	Token         string
	ExpiresAt     time.Time
	Email         string
	SpreadsheetID string
}

// Valid reports whether the session has a token that has not expired at now.
func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// Manager is safe for concurrent use. The in-memory copy is authoritative;
// persistence failures are returned but do not roll back memory.
type Manager struct {
	kv  KV
	now func() time.Time

	mu  sync.RWMutex
	cur Session
}

func NewManager(kv KV, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{kv: kv, now: now}
}

// Restore loads the persisted session. An expired token is returned as is;
// callers decide what to do with it.
func (m *Manager) Restore(ctx context.Context) (Session, error) {
	var s Session
	var err error
	if s.Token, _, err = m.kv.Get(ctx, keyToken); err != nil {
		return Session{}, fmt.Errorf("restore token: %w", err)
	}
	raw, ok, err := m.kv.Get(ctx, keyExpiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("restore expiry: %w", err)
	}
	if ok && raw != "" {
		if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			// Unreadable expiry: treat the token as expired.
			s.ExpiresAt = time.Time{}
		}
	}
	if s.Email, _, err = m.kv.Get(ctx, keyEmail); err != nil {
		return Session{}, fmt.Errorf("restore email: %w", err)
	}
	if s.SpreadsheetID, _, err = m.kv.Get(ctx, keySpreadsheetID); err != nil {
		return Session{}, fmt.Errorf("restore spreadsheet id: %w", err)
	}

	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return s, nil
}

// Begin stores a freshly issued token.
func (m *Manager) Begin(ctx context.Context, token string, expiresIn time.Duration) (Session, error) {
	exp := m.now().Add(expiresIn)
	m.mu.Lock()
	m.cur.Token = token
	m.cur.ExpiresAt = exp
	m.cur.Email = ""
	s := m.cur
	m.mu.Unlock()

	if err := m.kv.Set(ctx, keyToken, token); err != nil {
		return s, fmt.Errorf("persist token: %w", err)
	}
	if err := m.kv.Set(ctx, keyExpiresAt, exp.UTC().Format(time.RFC3339Nano)); err != nil {
		return s, fmt.Errorf("persist expiry: %w", err)
	}
	if err := m.kv.Delete(ctx, keyEmail); err != nil {
		return s, fmt.Errorf("clear email: %w", err)
	}
	return s, nil
}

func (m *Manager) SetEmail(ctx context.Context, email string) error {
	m.mu.Lock()
	m.cur.Email = email
	m.mu.Unlock()
	if err := m.kv.Set(ctx, keyEmail, email); err != nil {
		return fmt.Errorf("persist email: %w", err)
	}
	return nil
}

func (m *Manager) SetSpreadsheetID(ctx context.Context, id string) error {
	m.mu.Lock()
	m.cur.SpreadsheetID = id
	m.mu.Unlock()
	if err := m.kv.Set(ctx, keySpreadsheetID, id); err != nil {
		return fmt.Errorf("persist spreadsheet id: %w", err)
	}
	return nil
}

// Clear forgets the token and email. The spreadsheet selection survives so
// the next sign-in can load it straight away.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.cur.Token = ""
	m.cur.ExpiresAt = time.Time{}
	m.cur.Email = ""
	m.mu.Unlock()

	var errs []error
	for _, k := range []string{keyToken, keyExpiresAt, keyEmail} {
		if err := m.kv.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Valid reports whether the current token can still be used.
func (m *Manager) Valid() bool {
	return m.Current().Valid(m.now())
}

// Token returns the access token, ErrNoSession when there is none, or
// ErrExpired when it is past its expiry.
func (m *Manager) Token() (string, error) {
	s := m.Current()
	switch {
	case s.Token == "":
		return "", ErrNoSession
	case !s.Valid(m.now()):
		return "", ErrExpired
	}
	return s.Token, nil
}

// Credentials returns the token and its expiry without validation.
func (m *Manager) Credentials() (string, time.Time) {
	s := m.Current()
	return s.Token, s.ExpiresAt
}
