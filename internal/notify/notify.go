// Package notify delivers coordinator events to interested parties.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	EventSessionExpired EventType = "session_expired"
	EventPhaseChanged   EventType = "phase_changed"
	EventSyncFailed     EventType = "sync_failed"
	EventSyncWritten    EventType = "sync_written"
)

type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	At         time.Time `json:"at"`
	Phase      string    `json:"phase,omitempty"`
	Collection string    `json:"collection,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// NewEvent stamps an event with a ULID so consumers can order and dedupe it.
func NewEvent(t EventType, at time.Time) Event {
	return Event{
		ID:   ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Type: t,
		At:   at,
	}
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, e Event) error

func (f Func) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Notifier = Func(func(context.Context, Event) error { return nil })
