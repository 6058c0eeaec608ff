package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
)

// BusinessTransactionRepository persists business transactions
type BusinessTransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BusinessTransaction, error)
	FindByNumber(ctx context.Context, number string) (*BusinessTransaction, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*BusinessTransaction, int64, error)
	FindByStatus(ctx context.Context, status TransactionStatus, filter shared.Filter) ([]*BusinessTransaction, int64, error)
	Save(ctx context.Context, tx *BusinessTransaction) error
	// SaveWithLock persists the aggregate only if the stored version matches
	// the version the aggregate was loaded at. Returns
	// CONCURRENT_MODIFICATION on a version miss.
	SaveWithLock(ctx context.Context, tx *BusinessTransaction) error
	// DeleteDraft removes an unapplied draft and its items. Applied
	// transactions are never deleted.
	DeleteDraft(ctx context.Context, id uuid.UUID) error
	NextNumber(ctx context.Context, txType TransactionType) (string, error)
}
