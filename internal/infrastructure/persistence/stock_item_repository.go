package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/stock"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindByID finds a stock item by its ID
func (r *GormStockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockItem, error) {
	var item stock.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByWarehouseAndProduct finds the stock item for a warehouse-product pair
func (r *GormStockItemRepository) FindByWarehouseAndProduct(ctx context.Context, warehouseID, productID uuid.UUID) (*stock.StockItem, error) {
	var item stock.StockItem
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAll finds stock items matching the filter
func (r *GormStockItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]stock.StockItem, error) {
	var items []stock.StockItem
	query := applyFilter(r.db.WithContext(ctx).Model(&stock.StockItem{}), filter)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetOrCreate returns the stock item for the warehouse-product pair, creating
// a zero row if none exists yet. ON CONFLICT covers concurrent creation.
func (r *GormStockItemRepository) GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID) (*stock.StockItem, error) {
	item, err := r.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	item, err = stock.NewStockItem(warehouseID, productID)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(item)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race; fetch the row the other transaction created.
		return r.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	}
	return item, nil
}

// Save creates or updates a stock item
func (r *GormStockItemRepository) Save(ctx context.Context, item *stock.StockItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveWithLock persists the item only if the stored version matches the
// version the aggregate was loaded at
func (r *GormStockItemRepository) SaveWithLock(ctx context.Context, item *stock.StockItem) error {
	result := r.db.WithContext(ctx).
		Model(&stock.StockItem{}).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]interface{}{
			"on_hand_quantity":    item.OnHandQuantity,
			"reserved_quantity":   item.ReservedQuantity,
			"moving_average_cost": item.MovingAverageCost,
			"version":             item.Version,
			"updated_at":          item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	return nil
}

var _ stock.StockItemRepository = (*GormStockItemRepository)(nil)
