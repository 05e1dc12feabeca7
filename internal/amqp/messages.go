package amqp

import (
	"encoding/json"
	"time"

	"budget/internal/core"
)

// EventKind names a ledger change.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
	CategoryDeleted    EventKind = "category.deleted"
)

// LedgerEvent is published after a ledger write commits. Created events
// carry the full transaction so consumers need no database access.
type LedgerEvent struct {
	Kind        EventKind         `json:"kind"`
	ID          string            `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Category    string            `json:"category,omitempty"`
	Removed     int               `json:"removed,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTransactionCreated builds the event for a stored transaction.
func NewTransactionCreated(tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{Kind: TransactionCreated, ID: tx.ID, Transaction: &tx, Timestamp: time.Now()}
}

// NewTransactionDeleted builds the event for a removed transaction.
func NewTransactionDeleted(id string) *LedgerEvent {
	return &LedgerEvent{Kind: TransactionDeleted, ID: id, Timestamp: time.Now()}
}

// NewCategoryDeleted builds the event for a cascade delete that removed
// removed transactions tagged name.
func NewCategoryDeleted(id, name string, removed int) *LedgerEvent {
	return &LedgerEvent{Kind: CategoryDeleted, ID: id, Category: name, Removed: removed, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
