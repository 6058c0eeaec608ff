package catalog

import (
	"time"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Product represents a sellable/purchasable item in the catalog.
// CostPrice is a reference cost only; actual costing comes from the
// stock ledger's moving average.
type Product struct {
	shared.BaseAggregateRoot
	SKU       string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Unit      string          `gorm:"type:varchar(20);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CostPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Active    bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new active product
func NewProduct(sku, name, unit string, price, costPrice valueobject.Money) (*Product, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if unit == "" {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}
	if price.IsNegative() || costPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		Unit:              unit,
		Price:             price.Amount(),
		CostPrice:         costPrice.Amount(),
		Active:            true,
	}, nil
}

// UpdatePricing changes the selling price and reference cost
func (p *Product) UpdatePricing(price, costPrice valueobject.Money) error {
	if price.IsNegative() || costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	p.Price = price.Amount()
	p.CostPrice = costPrice.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Rename changes the display name
func (p *Product) Rename(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	p.Name = name
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Deactivate soft-deactivates the product. Products referenced by stock
// movements are never deleted, only deactivated.
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Activate re-activates the product
func (p *Product) Activate() {
	p.Active = true
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// GetPriceMoney returns the selling price as Money
func (p *Product) GetPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Price)
}

// GetCostPriceMoney returns the reference cost as Money
func (p *Product) GetCostPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.CostPrice)
}
