package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbooks/backend/internal/domain/catalog"
	"github.com/openbooks/backend/internal/domain/shared"
)

// GormWarehouseRepository implements WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Warehouse, error) {
	var warehouse catalog.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &warehouse, nil
}

// FindByCode finds a warehouse by its code
func (r *GormWarehouseRepository) FindByCode(ctx context.Context, code string) (*catalog.Warehouse, error) {
	var warehouse catalog.Warehouse
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &warehouse, nil
}

// FindAll finds warehouses matching the filter
func (r *GormWarehouseRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Warehouse, error) {
	var warehouses []catalog.Warehouse
	query := r.db.WithContext(ctx).Model(&catalog.Warehouse{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("code LIKE ? OR name LIKE ?", pattern, pattern)
	}
	if err := applyFilter(query, filter).Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *catalog.Warehouse) error {
	if err := r.db.WithContext(ctx).Save(warehouse).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

var _ catalog.WarehouseRepository = (*GormWarehouseRepository)(nil)
