package trade

import (
	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeTransactionCreated   = "TransactionCreated"
	EventTypeTransactionSubmitted = "TransactionSubmitted"
	EventTypeTransactionApplied   = "TransactionApplied"
	EventTypeTransactionReversed  = "TransactionReversed"
)

// TransactionCreatedEvent is raised when a draft transaction is created
type TransactionCreatedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Number        string          `json:"number"`
	Type          TransactionType `json:"type"`
}

// NewTransactionCreatedEvent creates a new TransactionCreatedEvent
func NewTransactionCreatedEvent(tx *BusinessTransaction) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionCreated, "BusinessTransaction", tx.ID),
		TransactionID:   tx.ID,
		Number:          tx.Number,
		Type:            tx.Type,
	}
}

// EventType returns the event type
func (e *TransactionCreatedEvent) EventType() string {
	return EventTypeTransactionCreated
}

// TransactionSubmittedEvent is raised when a draft is submitted for approval
type TransactionSubmittedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Number        string          `json:"number"`
	Type          TransactionType `json:"type"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewTransactionSubmittedEvent creates a new TransactionSubmittedEvent
func NewTransactionSubmittedEvent(tx *BusinessTransaction) *TransactionSubmittedEvent {
	return &TransactionSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionSubmitted, "BusinessTransaction", tx.ID),
		TransactionID:   tx.ID,
		Number:          tx.Number,
		Type:            tx.Type,
		TotalAmount:     tx.TotalAmount,
	}
}

// EventType returns the event type
func (e *TransactionSubmittedEvent) EventType() string {
	return EventTypeTransactionSubmitted
}

// TransactionAppliedEvent is raised when a transaction's stock and journal
// effects have posted and the status advanced to the applied state
type TransactionAppliedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Number        string          `json:"number"`
	Type          TransactionType `json:"type"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewTransactionAppliedEvent creates a new TransactionAppliedEvent
func NewTransactionAppliedEvent(tx *BusinessTransaction) *TransactionAppliedEvent {
	return &TransactionAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionApplied, "BusinessTransaction", tx.ID),
		TransactionID:   tx.ID,
		Number:          tx.Number,
		Type:            tx.Type,
		TotalAmount:     tx.TotalAmount,
	}
}

// EventType returns the event type
func (e *TransactionAppliedEvent) EventType() string {
	return EventTypeTransactionApplied
}

// TransactionReversedEvent is raised when a compensating transaction has
// reversed an applied transaction's stock and journal effects
type TransactionReversedEvent struct {
	shared.BaseDomainEvent
	TransactionID  uuid.UUID `json:"transaction_id"`
	CompensatingID uuid.UUID `json:"compensating_id"`
	Number         string    `json:"number"`
}

// NewTransactionReversedEvent creates a new TransactionReversedEvent
func NewTransactionReversedEvent(original *BusinessTransaction, compensatingID uuid.UUID) *TransactionReversedEvent {
	return &TransactionReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionReversed, "BusinessTransaction", original.ID),
		TransactionID:   original.ID,
		CompensatingID:  compensatingID,
		Number:          original.Number,
	}
}

// EventType returns the event type
func (e *TransactionReversedEvent) EventType() string {
	return EventTypeTransactionReversed
}
