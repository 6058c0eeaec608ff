package catalog

import (
	"time"

	"github.com/openbooks/backend/internal/domain/shared"
)

// Warehouse represents a physical stock location
type Warehouse struct {
	shared.BaseAggregateRoot
	Code    string `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name    string `gorm:"type:varchar(255);not null"`
	Address string `gorm:"type:varchar(500)"`
	Active  bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a new active warehouse
func NewWarehouse(code, name, address string) (*Warehouse, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Warehouse code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name cannot be empty")
	}

	return &Warehouse{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Address:           address,
		Active:            true,
	}, nil
}

// Rename changes the display name
func (w *Warehouse) Rename(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Warehouse name cannot be empty")
	}
	w.Name = name
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
	return nil
}

// Deactivate soft-deactivates the warehouse
func (w *Warehouse) Deactivate() {
	w.Active = false
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
}
