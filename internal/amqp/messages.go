package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds published after successful ledger writes.
const (
	EventExpenseCreated  = "expense_created"
	EventExpenseDeleted  = "expense_deleted"
	EventPaymentRecorded = "payment_recorded"
)

// LedgerEvent is a lightweight notification of a ledger write. It carries
// identifiers and the amount in cents; consumers needing more fetch it
// from storage.
type LedgerEvent struct {
	EventID     string    `json:"event_id"`
	Kind        string    `json:"kind"`
	GroupID     int64     `json:"group_id"`
	ExpenseID   int64     `json:"expense_id"`
	UserID      int64     `json:"user_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id and timestamp.
func NewLedgerEvent(kind string, groupID, expenseID int64) *LedgerEvent {
	return &LedgerEvent{
		EventID:   uuid.New().String(),
		Kind:      kind,
		GroupID:   groupID,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
