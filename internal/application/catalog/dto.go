package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	SKU       string          `json:"sku" binding:"required,min=1,max=64"`
	Name      string          `json:"name" binding:"required,min=1,max=255"`
	Unit      string          `json:"unit" binding:"required,min=1,max=20"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	CostPrice decimal.Decimal `json:"cost_price"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name      *string          `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	CostPrice *decimal.Decimal `json:"cost_price"`
}

// ProductResponse represents a product in responses
type ProductResponse struct {
	ID        uuid.UUID       `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateWarehouseRequest represents a request to create a warehouse
type CreateWarehouseRequest struct {
	Code    string `json:"code" binding:"required,min=1,max=32"`
	Name    string `json:"name" binding:"required,min=1,max=255"`
	Address string `json:"address" binding:"max=500"`
}

// WarehouseResponse represents a warehouse in responses
type WarehouseResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToProductResponse converts a product to a response DTO
func ToProductResponse(product *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:        product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		Unit:      product.Unit,
		Price:     product.Price,
		CostPrice: product.CostPrice,
		Active:    product.Active,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
}

// ToWarehouseResponse converts a warehouse to a response DTO
func ToWarehouseResponse(warehouse *catalog.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:        warehouse.ID,
		Code:      warehouse.Code,
		Name:      warehouse.Name,
		Address:   warehouse.Address,
		Active:    warehouse.Active,
		CreatedAt: warehouse.CreatedAt,
	}
}
