package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerAccountRepository defines persistence operations for accounts
type LedgerAccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*LedgerAccount, error)
	FindByCode(ctx context.Context, code string) (*LedgerAccount, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]LedgerAccount, error)
	Save(ctx context.Context, account *LedgerAccount) error
}

// DebitCreditTotals holds summed journal sides for one account
type DebitCreditTotals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// JournalEntryRepository is append-only: entries are created in batches,
// never updated or deleted
type JournalEntryRepository interface {
	// AppendBatch persists all entries or none
	AppendBatch(ctx context.Context, entries []*JournalEntry) error
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]JournalEntry, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]JournalEntry, error)
	// HasReversal reports whether a reversal batch already exists for the
	// transaction
	HasReversal(ctx context.Context, transactionID uuid.UUID) (bool, error)
	// SumByAccount returns total debit and credit for an account, restricted
	// to entries posted at or before asOf when given
	SumByAccount(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (DebitCreditTotals, error)
}
