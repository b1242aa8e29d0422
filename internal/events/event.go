package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the kind of change (created, updated, deleted)
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeDeleted  EventType = "deleted"
	EventTypeImported EventType = "imported"
)

// EntityType represents the entity the event is about
type EntityType string

const (
	EntityTypeTransaction EntityType = "transaction"
	EntityTypeTransfer    EntityType = "transfer"
	EntityTypeAccount     EntityType = "account"
	EntityTypeCategory    EntityType = "category"
	EntityTypeBudget      EntityType = "budget"
	EntityTypeImport      EntityType = "import"
)

// Event is the message pushed to connected clients.
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // Combined type e.g. "transaction.created"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeTransaction, payload)
}

func TransactionUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTransaction, payload)
}

func TransactionDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeTransaction, payload)
}

func TransferCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeTransfer, payload)
}

func TransferUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTransfer, payload)
}

func TransferDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeTransfer, payload)
}

func AccountUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeAccount, payload)
}

func BudgetUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeBudget, payload)
}

func ImportCompleted(payload interface{}) Event {
	return NewEvent(EventTypeImported, EntityTypeImport, payload)
}
