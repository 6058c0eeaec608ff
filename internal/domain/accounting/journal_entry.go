package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// JournalEntry is one immutable line of the double-entry journal. Exactly
// one of Debit/Credit is non-zero. Entries are never updated or deleted;
// corrections append a reversal batch with debit and credit swapped.
type JournalEntry struct {
	shared.BaseEntity
	AccountID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_journal_entry_account"`
	Debit         decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Credit        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null"`
	TransactionID uuid.UUID            `gorm:"type:uuid;not null;index:idx_journal_entry_tx"`
	Description   string               `gorm:"type:varchar(255)"`
	Reversal      bool                 `gorm:"not null;default:false"`
	PostedAt      time.Time            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// NewDebitEntry creates a journal entry debiting the account
func NewDebitEntry(accountID uuid.UUID, amount valueobject.Money, transactionID uuid.UUID, description string) (*JournalEntry, error) {
	return newEntry(accountID, amount, decimal.Zero, amount.Amount(), transactionID, description)
}

// NewCreditEntry creates a journal entry crediting the account
func NewCreditEntry(accountID uuid.UUID, amount valueobject.Money, transactionID uuid.UUID, description string) (*JournalEntry, error) {
	return newEntry(accountID, amount, amount.Amount(), decimal.Zero, transactionID, description)
}

func newEntry(accountID uuid.UUID, amount valueobject.Money, credit, debit decimal.Decimal, transactionID uuid.UUID, description string) (*JournalEntry, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if transactionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Journal amount must be positive")
	}

	return &JournalEntry{
		BaseEntity:    shared.NewBaseEntity(),
		AccountID:     accountID,
		Debit:         debit,
		Credit:        credit,
		Currency:      amount.Currency(),
		TransactionID: transactionID,
		Description:   description,
		PostedAt:      time.Now(),
	}, nil
}

// IsDebit returns true if this entry carries the debit side
func (e *JournalEntry) IsDebit() bool {
	return e.Debit.IsPositive()
}

// Amount returns the non-zero side as Money
func (e *JournalEntry) Amount() valueobject.Money {
	m, _ := valueobject.NewMoney(e.Debit.Add(e.Credit), e.Currency)
	return m
}

// BuildReversal returns a new entry with debit and credit swapped,
// marked as a reversal, posting against the same transaction id.
func (e *JournalEntry) BuildReversal() *JournalEntry {
	return &JournalEntry{
		BaseEntity:    shared.NewBaseEntity(),
		AccountID:     e.AccountID,
		Debit:         e.Credit,
		Credit:        e.Debit,
		Currency:      e.Currency,
		TransactionID: e.TransactionID,
		Description:   "Reversal: " + e.Description,
		Reversal:      true,
		PostedAt:      time.Now(),
	}
}

// ValidateBatch checks the double-entry invariants for a batch of entries
// belonging to one transaction: at least two entries, a single currency,
// exactly one non-zero side per entry, and equal debit and credit totals.
// Returns UNBALANCED_ENTRY when the totals differ.
func ValidateBatch(entries []*JournalEntry) error {
	if len(entries) < 2 {
		return shared.NewDomainError("VALIDATION_ERROR", "A journal batch needs at least two entries")
	}

	currency := entries[0].Currency
	debitTotal := decimal.Zero
	creditTotal := decimal.Zero

	for _, e := range entries {
		if e.Currency != currency {
			return shared.ErrCurrencyMismatch
		}
		if e.TransactionID != entries[0].TransactionID {
			return shared.NewDomainError("VALIDATION_ERROR", "Journal batch entries must share a transaction ID")
		}
		debitSet := e.Debit.IsPositive()
		creditSet := e.Credit.IsPositive()
		if debitSet == creditSet {
			return shared.NewDomainError("VALIDATION_ERROR", "Exactly one of debit or credit must be set")
		}
		debitTotal = debitTotal.Add(e.Debit)
		creditTotal = creditTotal.Add(e.Credit)
	}

	if !debitTotal.Equal(creditTotal) {
		return shared.ErrUnbalancedEntry
	}

	return nil
}

// BuildReversalBatch returns the reversal entries for an original batch
func BuildReversalBatch(original []*JournalEntry) []*JournalEntry {
	reversals := make([]*JournalEntry, 0, len(original))
	for _, e := range original {
		reversals = append(reversals, e.BuildReversal())
	}
	return reversals
}
