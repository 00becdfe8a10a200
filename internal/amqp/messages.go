package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type EventType string

const (
	ExpenseCreated         EventType = "expense.created"
	ExpenseUpdated         EventType = "expense.updated"
	ExpenseDeleted         EventType = "expense.deleted"
	ExpenseReceiptAttached EventType = "expense.receipt_attached"
)

func (t EventType) IsValid() bool {
	switch t {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted, ExpenseReceiptAttached:
		return true
	default:
		return false
	}
}

// ExpenseEvent announces a change to one of an owner's expenses. Consumers
// re-read the owner's records rather than trusting event contents.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	ExpenseID string    `json:"expense_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEvent(t EventType, ownerID, expenseID string) ExpenseEvent {
	return ExpenseEvent{
		Type:      t,
		OwnerID:   ownerID,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

func (e ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (ExpenseEvent, error) {
	var e ExpenseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ExpenseEvent{}, err
	}
	if !e.Type.IsValid() {
		return ExpenseEvent{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.OwnerID == "" {
		return ExpenseEvent{}, errors.New("event has no owner")
	}
	return e, nil
}
