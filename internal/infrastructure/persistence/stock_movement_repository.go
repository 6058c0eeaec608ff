package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/stock"
)

// GormStockMovementRepository implements the append-only StockMovementRepository
// using GORM. Movements are only ever inserted.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Append inserts a movement record. The unique index on reversed_movement_id
// makes a second reversal of the same movement fail at the database.
func (r *GormStockMovementRepository) Append(ctx context.Context, movement *stock.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyReversed
		}
		return err
	}
	return nil
}

// FindByID finds a movement by its ID
func (r *GormStockMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockMovement, error) {
	var movement stock.StockMovement
	if err := r.db.WithContext(ctx).First(&movement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrMovementNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByTransaction finds all movements posted for a business transaction
func (r *GormStockMovementRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByStockItem finds movements for a stock item, newest first
func (r *GormStockMovementRepository) FindByStockItem(ctx context.Context, stockItemID uuid.UUID, filter shared.Filter) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	query := applyFilter(
		r.db.WithContext(ctx).Model(&stock.StockMovement{}).
			Where("stock_item_id = ?", stockItemID),
		filter,
	)
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindReversalOf returns the movement that reverses the given movement
func (r *GormStockMovementRepository) FindReversalOf(ctx context.Context, movementID uuid.UUID) (*stock.StockMovement, error) {
	var movement stock.StockMovement
	if err := r.db.WithContext(ctx).
		Where("reversed_movement_id = ?", movementID).
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// SumDeltaByStockItem sums all quantity deltas for a stock item
func (r *GormStockMovementRepository) SumDeltaByStockItem(ctx context.Context, stockItemID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.StockMovement{}).
		Select("COALESCE(SUM(quantity_delta), 0) as total").
		Where("stock_item_id = ?", stockItemID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

var _ stock.StockMovementRepository = (*GormStockMovementRepository)(nil)
