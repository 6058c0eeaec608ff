package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementReason identifies why a stock movement was posted
type MovementReason string

const (
	ReasonPurchase   MovementReason = "purchase"
	ReasonSale       MovementReason = "sale"
	ReasonReturnIn   MovementReason = "return_in"
	ReasonReturnOut  MovementReason = "return_out"
	ReasonAdjustment MovementReason = "adjustment"
)

// reversalSuffix marks a movement that negates an earlier one
const reversalSuffix = "_reversal"

// String returns the string representation of MovementReason
func (r MovementReason) String() string {
	return string(r)
}

// IsValid returns true if the reason is one of the known values,
// with or without the reversal suffix
func (r MovementReason) IsValid() bool {
	base := MovementReason(strings.TrimSuffix(string(r), reversalSuffix))
	switch base {
	case ReasonPurchase, ReasonSale, ReasonReturnIn, ReasonReturnOut, ReasonAdjustment:
		return true
	}
	return false
}

// IsReversal returns true if this reason marks a reversal movement
func (r MovementReason) IsReversal() bool {
	return strings.HasSuffix(string(r), reversalSuffix)
}

// Reversal returns the reason with the reversal suffix appended
func (r MovementReason) Reversal() MovementReason {
	if r.IsReversal() {
		return r
	}
	return MovementReason(string(r) + reversalSuffix)
}

// StockMovement is an immutable, append-only record of a quantity change on a
// stock item. Movements are never updated or deleted; reversing a movement
// appends an equal-and-opposite movement referencing the original.
type StockMovement struct {
	shared.BaseEntity
	StockItemID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_item"`
	WarehouseID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_warehouse"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_product"`
	QuantityDelta      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Signed: positive inbound, negative outbound
	UnitCost           decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Cost per unit the movement was valued at
	Reason             MovementReason  `gorm:"type:varchar(30);not null;index:idx_stock_movement_reason"`
	TransactionID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_tx"`
	ReversedMovementID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"` // Set on reversal movements; unique so a movement is reversed at most once
	OnHandBefore       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OnHandAfter        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a new stock movement record
func NewStockMovement(
	stockItemID, warehouseID, productID uuid.UUID,
	quantityDelta, unitCost decimal.Decimal,
	reason MovementReason,
	transactionID uuid.UUID,
	onHandBefore, onHandAfter decimal.Decimal,
) (*StockMovement, error) {
	if stockItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK_ITEM", "Stock item ID cannot be empty")
	}
	if quantityDelta.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity delta cannot be zero")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Invalid movement reason")
	}
	if transactionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}

	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(),
		StockItemID:   stockItemID,
		WarehouseID:   warehouseID,
		ProductID:     productID,
		QuantityDelta: quantityDelta,
		UnitCost:      unitCost,
		Reason:        reason,
		TransactionID: transactionID,
		OnHandBefore:  onHandBefore,
		OnHandAfter:   onHandAfter,
	}, nil
}

// IsInbound returns true if the movement increases on-hand quantity
func (m *StockMovement) IsInbound() bool {
	return m.QuantityDelta.IsPositive()
}

// IsOutbound returns true if the movement decreases on-hand quantity
func (m *StockMovement) IsOutbound() bool {
	return m.QuantityDelta.IsNegative()
}

// TotalCost returns the absolute costed value of the movement
func (m *StockMovement) TotalCost() decimal.Decimal {
	return m.QuantityDelta.Abs().Mul(m.UnitCost)
}

// PostedAt returns when the movement was recorded
func (m *StockMovement) PostedAt() time.Time {
	return m.CreatedAt
}
