package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewEventAssignsULID(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEvent(EventSessionExpired, at)
	id, err := ulid.Parse(e.ID)
	if err != nil {
		t.Fatalf("event id is not a ULID: %v", err)
	}
	if ulid.Time(id.Time()).UnixMilli() != at.UnixMilli() {
		t.Fatalf("ULID time does not match event time")
	}
	if other := NewEvent(EventSessionExpired, at); other.ID == e.ID {
		t.Fatalf("ids must be unique")
	}
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	var got []EventType
	ok := Func(func(_ context.Context, e Event) error { got = append(got, e.Type); return nil })
	boom := errors.New("boom")
	failing := Func(func(context.Context, Event) error { return boom })

	err := Multi{ok, nil, failing, ok}.Notify(context.Background(), Event{Type: EventSyncFailed})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if err := Discard.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("discard returned %v", err)
	}
}
