package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// StockItem tracks quantity and moving-average cost for one product in one
// warehouse. It is the aggregate root for stock operations; every quantity
// change goes through PostInbound/PostOutbound/PostReversal, which append an
// immutable StockMovement alongside the counter update.
type StockItem struct {
	shared.BaseAggregateRoot
	WarehouseID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_warehouse_product,priority:1"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_item_warehouse_product,priority:2"`
	OnHandQuantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MovingAverageCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockItem) TableName() string {
	return "stock_items"
}

// NewStockItem creates a new stock item for a warehouse-product combination
func NewStockItem(warehouseID, productID uuid.UUID) (*StockItem, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}

	return &StockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		ProductID:         productID,
		OnHandQuantity:    decimal.Zero,
		ReservedQuantity:  decimal.Zero,
		MovingAverageCost: decimal.Zero,
	}, nil
}

// AvailableQuantity returns on-hand minus reserved
func (i *StockItem) AvailableQuantity() decimal.Decimal {
	return i.OnHandQuantity.Sub(i.ReservedQuantity)
}

// CurrentValuation returns on-hand quantity times moving average cost,
// denominated in the given currency. An empty currency falls back to the
// system default.
func (i *StockItem) CurrentValuation(currency valueobject.Currency) valueobject.Money {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	m, _ := valueobject.NewMoney(i.OnHandQuantity.Mul(i.MovingAverageCost), currency)
	return m
}

// CanFulfill returns true if available quantity covers the requested quantity
func (i *StockItem) CanFulfill(quantity decimal.Decimal) bool {
	return i.AvailableQuantity().GreaterThanOrEqual(quantity)
}

// PostInbound increases on-hand quantity and recomputes the moving average:
// (oldQty*oldAvg + inQty*inCost) / (oldQty + inQty). Appends and returns the
// movement record; the caller persists both atomically.
func (i *StockItem) PostInbound(quantity, unitCost decimal.Decimal, reason MovementReason, transactionID uuid.UUID) (*StockMovement, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Inbound quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	before := i.OnHandQuantity
	oldCost := i.MovingAverageCost

	if before.IsZero() {
		i.MovingAverageCost = unitCost.Round(4)
	} else {
		totalValue := before.Mul(oldCost).Add(quantity.Mul(unitCost))
		i.MovingAverageCost = totalValue.Div(before.Add(quantity)).Round(4)
	}
	i.OnHandQuantity = before.Add(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	movement, err := NewStockMovement(
		i.ID, i.WarehouseID, i.ProductID,
		quantity, unitCost, reason, transactionID,
		before, i.OnHandQuantity,
	)
	if err != nil {
		return nil, err
	}

	i.AddDomainEvent(NewStockMovementPostedEvent(i, movement))
	if !oldCost.Equal(i.MovingAverageCost) {
		i.AddDomainEvent(NewStockCostChangedEvent(i, oldCost, i.MovingAverageCost))
	}

	return movement, nil
}

// PostOutbound decreases on-hand quantity, costing the movement at the
// current moving average (the average itself does not change). Fails with
// INSUFFICIENT_STOCK if on-hand would go negative, unless allowNegative is
// set. A deduction that would go negative fails, it is never clamped.
func (i *StockItem) PostOutbound(quantity decimal.Decimal, reason MovementReason, transactionID uuid.UUID, allowNegative bool) (*StockMovement, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Outbound quantity must be positive")
	}

	before := i.OnHandQuantity
	after := before.Sub(quantity)
	if after.IsNegative() && !allowNegative {
		return nil, shared.ErrInsufficientStock
	}

	i.OnHandQuantity = after
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	movement, err := NewStockMovement(
		i.ID, i.WarehouseID, i.ProductID,
		quantity.Neg(), i.MovingAverageCost, reason, transactionID,
		before, after,
	)
	if err != nil {
		return nil, err
	}

	i.AddDomainEvent(NewStockMovementPostedEvent(i, movement))

	return movement, nil
}

// PostReversal appends the exact negation of an earlier movement, referencing
// the original. Reversing an outbound brings stock back in at the original
// unit cost (which re-enters the moving average); reversing an inbound takes
// stock back out and is subject to the non-negative invariant.
func (i *StockItem) PostReversal(original *StockMovement, allowNegative bool) (*StockMovement, error) {
	if original == nil {
		return nil, shared.ErrMovementNotFound
	}
	if original.StockItemID != i.ID {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Movement does not belong to this stock item")
	}
	if original.Reason.IsReversal() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Cannot reverse a reversal movement")
	}

	var movement *StockMovement
	var err error
	if original.IsOutbound() {
		movement, err = i.PostInbound(original.QuantityDelta.Neg(), original.UnitCost, original.Reason.Reversal(), original.TransactionID)
	} else {
		movement, err = i.PostOutbound(original.QuantityDelta, original.Reason.Reversal(), original.TransactionID, allowNegative)
	}
	if err != nil {
		return nil, err
	}

	reversedID := original.ID
	movement.ReversedMovementID = &reversedID
	return movement, nil
}

// Reserve places a soft hold on available stock for a pending transaction.
// Fails with INSUFFICIENT_STOCK when available stock does not cover it.
func (i *StockItem) Reserve(quantity decimal.Decimal, transactionID uuid.UUID, expireAt time.Time) (*StockReservation, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reservation quantity must be positive")
	}
	if transactionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}
	if !i.CanFulfill(quantity) {
		return nil, shared.ErrInsufficientStock
	}

	i.ReservedQuantity = i.ReservedQuantity.Add(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	reservation := NewStockReservation(i.ID, quantity, transactionID, expireAt)
	i.AddDomainEvent(NewStockReservedEvent(i, reservation))

	return reservation, nil
}

// ReleaseReservation returns a reservation's quantity to visible stock
func (i *StockItem) ReleaseReservation(reservation *StockReservation) error {
	if reservation == nil || reservation.StockItemID != i.ID {
		return shared.ErrNotFound
	}
	if !reservation.IsActive() {
		return shared.NewDomainError("RESERVATION_INACTIVE", "Reservation already released or consumed")
	}

	i.ReservedQuantity = i.ReservedQuantity.Sub(reservation.Quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	reservation.Release()

	i.AddDomainEvent(NewStockReservationReleasedEvent(i, reservation))

	return nil
}

// ConsumeReservation marks a reservation as consumed by an apply. The hold is
// lifted; the actual deduction is the outbound movement posted by the apply.
func (i *StockItem) ConsumeReservation(reservation *StockReservation) error {
	if reservation == nil || reservation.StockItemID != i.ID {
		return shared.ErrNotFound
	}
	if !reservation.IsActive() {
		return shared.NewDomainError("RESERVATION_INACTIVE", "Reservation already released or consumed")
	}

	i.ReservedQuantity = i.ReservedQuantity.Sub(reservation.Quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	reservation.Consume()

	return nil
}
