package amqp

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType names what happened to a ledger record.
type EventType string

const (
	EventCreated    EventType = "created"
	EventUpdated    EventType = "updated"
	EventDeleted    EventType = "deleted"
	EventSpent      EventType = "spent"
	EventApproved   EventType = "approved"
	EventReconciled EventType = "reconciled"
)

// Entity names the ledger a record belongs to.
type Entity string

const (
	EntityAccount        Entity = "account"
	EntityTransaction    Entity = "transaction"
	EntityExpense        Entity = "expense"
	EntityProjectExpense Entity = "project_expense"
	EntityProject        Entity = "project"
	EntityBudget         Entity = "budget"
)

// LedgerEvent is a lightweight notification of a committed write.
// Consumers fetch the full record from the database.
type LedgerEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Entity      Entity    `json:"entity"`
	EntityID    int64     `json:"entityId"`
	BudgetID    *int64    `json:"budgetId,omitempty"`
	AmountCents int64     `json:"amountCents,omitempty"`
	Version     int64     `json:"version,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id
func NewLedgerEvent(typ EventType, entity Entity, entityID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Entity:    entity,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// WithBudget links the event to a budget.
func (m *LedgerEvent) WithBudget(budgetID int64, version int64) *LedgerEvent {
	id := budgetID
	m.BudgetID = &id
	m.Version = version
	return m
}

// WithAmount records the amount moved by the write.
func (m *LedgerEvent) WithAmount(cents int64) *LedgerEvent {
	m.AmountCents = cents
	return m
}

// RoutingKey is entity.type, e.g. "budget.spent".
func (m *LedgerEvent) RoutingKey() string {
	return string(m.Entity) + "." + string(m.Type)
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
