package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/trade"
)

// GormBusinessTransactionRepository implements BusinessTransactionRepository
// using GORM. Line items are loaded and written together with the aggregate.
type GormBusinessTransactionRepository struct {
	db *gorm.DB
}

// NewGormBusinessTransactionRepository creates a new GormBusinessTransactionRepository
func NewGormBusinessTransactionRepository(db *gorm.DB) *GormBusinessTransactionRepository {
	return &GormBusinessTransactionRepository{db: db}
}

// FindByID finds a transaction with its items by ID
func (r *GormBusinessTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.BusinessTransaction, error) {
	var tx trade.BusinessTransaction
	if err := r.db.WithContext(ctx).Preload("Items").First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindByNumber finds a transaction with its items by document number
func (r *GormBusinessTransactionRepository) FindByNumber(ctx context.Context, number string) (*trade.BusinessTransaction, error) {
	var tx trade.BusinessTransaction
	if err := r.db.WithContext(ctx).Preload("Items").Where("number = ?", number).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindAll finds transactions matching the filter and the total count
func (r *GormBusinessTransactionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*trade.BusinessTransaction, int64, error) {
	return r.findWhere(ctx, r.db.WithContext(ctx).Model(&trade.BusinessTransaction{}), filter)
}

// FindByStatus finds transactions in the given status and the total count
func (r *GormBusinessTransactionRepository) FindByStatus(ctx context.Context, status trade.TransactionStatus, filter shared.Filter) ([]*trade.BusinessTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&trade.BusinessTransaction{}).Where("status = ?", status)
	return r.findWhere(ctx, query, filter)
}

func (r *GormBusinessTransactionRepository) findWhere(ctx context.Context, query *gorm.DB, filter shared.Filter) ([]*trade.BusinessTransaction, int64, error) {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("number LIKE ? OR counterparty_name LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []*trade.BusinessTransaction
	if err := applyFilter(query, filter).Preload("Items").Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// Save creates or updates a transaction together with its items
func (r *GormBusinessTransactionRepository) Save(ctx context.Context, tx *trade.BusinessTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Omit("Items").Save(tx).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrAlreadyExists
			}
			return err
		}
		return r.replaceItems(db, tx)
	})
}

// SaveWithLock persists the aggregate only if the stored version matches the
// version the aggregate was loaded at
func (r *GormBusinessTransactionRepository) SaveWithLock(ctx context.Context, tx *trade.BusinessTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Model(&trade.BusinessTransaction{}).
			Where("id = ? AND version = ?", tx.ID, tx.Version-1).
			Updates(map[string]interface{}{
				"status":          tx.Status,
				"warehouse_id":    tx.WarehouseID,
				"subtotal":        tx.Subtotal,
				"tax_amount":      tx.TaxAmount,
				"discount_amount": tx.DiscountAmount,
				"total_amount":    tx.TotalAmount,
				"paid_amount":     tx.PaidAmount,
				"reverses_id":     tx.ReversesID,
				"reversed_by_id":  tx.ReversedByID,
				"remark":          tx.Remark,
				"approved_at":     tx.ApprovedAt,
				"completed_at":    tx.CompletedAt,
				"cancelled_at":    tx.CancelledAt,
				"cancel_reason":   tx.CancelReason,
				"version":         tx.Version,
				"updated_at":      tx.UpdatedAt,
			})
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return shared.ErrAlreadyReversed
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrentModification
		}
		return r.replaceItems(db, tx)
	})
}

// replaceItems rewrites the item rows to match the aggregate's current lines
func (r *GormBusinessTransactionRepository) replaceItems(db *gorm.DB, tx *trade.BusinessTransaction) error {
	if err := db.Where("transaction_id = ?", tx.ID).Delete(&trade.TransactionItem{}).Error; err != nil {
		return err
	}
	if len(tx.Items) == 0 {
		return nil
	}
	return db.Create(&tx.Items).Error
}

// DeleteDraft removes an unapplied draft and its items
func (r *GormBusinessTransactionRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Where("id = ? AND status = ?", id, trade.StatusDraft).
			Delete(&trade.BusinessTransaction{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return db.Where("transaction_id = ?", id).Delete(&trade.TransactionItem{}).Error
	})
}

// NextNumber generates the next document number for the transaction type,
// e.g. SO-20260901-0003. Numbering restarts daily per type.
func (r *GormBusinessTransactionRepository) NextNumber(ctx context.Context, txType trade.TransactionType) (string, error) {
	prefix := numberPrefix(txType)
	datePart := time.Now().Format("20060102")

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&trade.BusinessTransaction{}).
		Where("number LIKE ?", fmt.Sprintf("%s-%s-%%", prefix, datePart)).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, datePart, count+1), nil
}

func numberPrefix(txType trade.TransactionType) string {
	switch txType {
	case trade.TransactionTypeSale:
		return "SO"
	case trade.TransactionTypePurchase:
		return "PO"
	case trade.TransactionTypeSaleReturn:
		return "SR"
	case trade.TransactionTypePurchaseReturn:
		return "PR"
	case trade.TransactionTypeBank:
		return "BK"
	default:
		return "TX"
	}
}

var _ trade.BusinessTransactionRepository = (*GormBusinessTransactionRepository)(nil)
