package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/openbooks/backend/internal/domain/shared"
)

// GormJournalEntryRepository implements the append-only JournalEntryRepository
// using GORM. Entries are inserted in batches and never modified.
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// AppendBatch persists all entries or none
func (r *GormJournalEntryRepository) AppendBatch(ctx context.Context, entries []*accounting.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entries).Error
	})
}

// FindByTransaction finds all entries posted for a business transaction
func (r *GormJournalEntryRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]accounting.JournalEntry, error) {
	var entries []accounting.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByAccount finds entries for an account, newest first
func (r *GormJournalEntryRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]accounting.JournalEntry, error) {
	var entries []accounting.JournalEntry
	query := applyFilter(
		r.db.WithContext(ctx).Model(&accounting.JournalEntry{}).
			Where("account_id = ?", accountID),
		filter,
	)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// HasReversal reports whether a reversal batch already exists for the transaction
func (r *GormJournalEntryRepository) HasReversal(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&accounting.JournalEntry{}).
		Where("transaction_id = ? AND reversal = ?", transactionID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumByAccount returns total debit and credit for an account, restricted to
// entries posted at or before asOf when given
func (r *GormJournalEntryRepository) SumByAccount(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (accounting.DebitCreditTotals, error) {
	var result struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&accounting.JournalEntry{}).
		Select("COALESCE(SUM(debit), 0) as debit, COALESCE(SUM(credit), 0) as credit").
		Where("account_id = ?", accountID)
	if asOf != nil {
		query = query.Where("posted_at <= ?", *asOf)
	}
	if err := query.Scan(&result).Error; err != nil {
		return accounting.DebitCreditTotals{}, err
	}
	return accounting.DebitCreditTotals{Debit: result.Debit, Credit: result.Credit}, nil
}

var _ accounting.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
