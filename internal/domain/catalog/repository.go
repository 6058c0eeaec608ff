package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
)

// ProductRepository defines persistence operations for products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, product *Product) error
}

// WarehouseRepository defines persistence operations for warehouses
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindByCode(ctx context.Context, code string) (*Warehouse, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}
