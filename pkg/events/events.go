package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the API.
const (
	TypeAccountRoleChanged       = "account.role_changed"
	TypeAccountDeleted           = "account.deleted"
	TypeTutorStatusChanged       = "tutor.status_changed"
	TypeApplicationStatusChanged = "application.status_changed"
	TypePaymentCompleted         = "payment.completed"
)

// Event is a domain fact emitted after a successful mutation.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

// New stamps an event with an id and timestamp.
func New(eventType string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events; used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
