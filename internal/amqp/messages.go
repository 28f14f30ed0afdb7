package amqp

import (
	"encoding/json"
	"time"

	"github.com/mcarneiro/airbnb-organizer/internal/notify"
)

// EventMessage is the wire form of a coordinator event.
type EventMessage struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Phase      string    `json:"phase,omitempty"`
	Collection string    `json:"collection,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewEventMessage(e notify.Event) *EventMessage {
	return &EventMessage{
		ID:         e.ID,
		Type:       string(e.Type),
		Phase:      e.Phase,
		Collection: e.Collection,
		Message:    e.Message,
		Timestamp:  e.At,
	}
}

// RoutingKey is "organizer.<type>", e.g. "organizer.session_expired".
func (m *EventMessage) RoutingKey() string {
	return "organizer." + m.Type
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes a message published by Publisher.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
