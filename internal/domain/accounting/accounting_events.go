package accounting

import (
	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeJournal = "Journal"

// Event type constants
const (
	EventTypeJournalEntriesPosted = "JournalEntriesPosted"
	EventTypeJournalReversed      = "JournalReversed"
)

// JournalEntriesPostedEvent is raised after a balanced batch is appended
type JournalEntriesPostedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID   `json:"transaction_id"`
	EntryIDs      []uuid.UUID `json:"entry_ids"`
	Reversal      bool        `json:"reversal"`
}

// NewJournalEntriesPostedEvent creates a new JournalEntriesPostedEvent
func NewJournalEntriesPostedEvent(transactionID uuid.UUID, entries []*JournalEntry, reversal bool) *JournalEntriesPostedEvent {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return &JournalEntriesPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntriesPosted, AggregateTypeJournal, transactionID),
		TransactionID:   transactionID,
		EntryIDs:        ids,
		Reversal:        reversal,
	}
}

// EventType returns the event type name
func (e *JournalEntriesPostedEvent) EventType() string {
	return EventTypeJournalEntriesPosted
}

// JournalReversedEvent is raised when a transaction's journal batch is
// reversed
type JournalReversedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID `json:"transaction_id"`
	EntryCount    int       `json:"entry_count"`
}

// NewJournalReversedEvent creates a new JournalReversedEvent
func NewJournalReversedEvent(transactionID uuid.UUID, entryCount int) *JournalReversedEvent {
	return &JournalReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalReversed, AggregateTypeJournal, transactionID),
		TransactionID:   transactionID,
		EntryCount:      entryCount,
	}
}

// EventType returns the event type name
func (e *JournalReversedEvent) EventType() string {
	return EventTypeJournalReversed
}
