package stock

import (
	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeStockItem = "StockItem"

// Event type constants
const (
	EventTypeStockMovementPosted       = "StockMovementPosted"
	EventTypeStockCostChanged          = "StockCostChanged"
	EventTypeStockReserved             = "StockReserved"
	EventTypeStockReservationReleased  = "StockReservationReleased"
	EventTypeStockReservationExpired   = "StockReservationExpired"
)

// StockMovementPostedEvent is raised for every posted movement, inbound,
// outbound and reversal alike
type StockMovementPostedEvent struct {
	shared.BaseDomainEvent
	StockItemID   uuid.UUID       `json:"stock_item_id"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	MovementID    uuid.UUID       `json:"movement_id"`
	QuantityDelta decimal.Decimal `json:"quantity_delta"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Reason        string          `json:"reason"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	OnHandAfter   decimal.Decimal `json:"on_hand_after"`
}

// NewStockMovementPostedEvent creates a new StockMovementPostedEvent
func NewStockMovementPostedEvent(item *StockItem, movement *StockMovement) *StockMovementPostedEvent {
	return &StockMovementPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMovementPosted, AggregateTypeStockItem, item.ID),
		StockItemID:     item.ID,
		WarehouseID:     item.WarehouseID,
		ProductID:       item.ProductID,
		MovementID:      movement.ID,
		QuantityDelta:   movement.QuantityDelta,
		UnitCost:        movement.UnitCost,
		Reason:          movement.Reason.String(),
		TransactionID:   movement.TransactionID,
		OnHandAfter:     movement.OnHandAfter,
	}
}

// EventType returns the event type name
func (e *StockMovementPostedEvent) EventType() string {
	return EventTypeStockMovementPosted
}

// StockCostChangedEvent is raised when an inbound movement changes the
// moving average cost
type StockCostChangedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID       `json:"stock_item_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	OldCost     decimal.Decimal `json:"old_cost"`
	NewCost     decimal.Decimal `json:"new_cost"`
}

// NewStockCostChangedEvent creates a new StockCostChangedEvent
func NewStockCostChangedEvent(item *StockItem, oldCost, newCost decimal.Decimal) *StockCostChangedEvent {
	return &StockCostChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockCostChanged, AggregateTypeStockItem, item.ID),
		StockItemID:     item.ID,
		WarehouseID:     item.WarehouseID,
		ProductID:       item.ProductID,
		OldCost:         oldCost,
		NewCost:         newCost,
	}
}

// EventType returns the event type name
func (e *StockCostChangedEvent) EventType() string {
	return EventTypeStockCostChanged
}

// StockReservedEvent is raised when stock is reserved for a pending transaction
type StockReservedEvent struct {
	shared.BaseDomainEvent
	StockItemID   uuid.UUID       `json:"stock_item_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(item *StockItem, reservation *StockReservation) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeStockItem, item.ID),
		StockItemID:     item.ID,
		ReservationID:   reservation.ID,
		Quantity:        reservation.Quantity,
		TransactionID:   reservation.TransactionID,
	}
}

// EventType returns the event type name
func (e *StockReservedEvent) EventType() string {
	return EventTypeStockReserved
}

// StockReservationReleasedEvent is raised when a reservation is released
// back to visible stock
type StockReservationReleasedEvent struct {
	shared.BaseDomainEvent
	StockItemID   uuid.UUID       `json:"stock_item_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// NewStockReservationReleasedEvent creates a new StockReservationReleasedEvent
func NewStockReservationReleasedEvent(item *StockItem, reservation *StockReservation) *StockReservationReleasedEvent {
	return &StockReservationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReservationReleased, AggregateTypeStockItem, item.ID),
		StockItemID:     item.ID,
		ReservationID:   reservation.ID,
		Quantity:        reservation.Quantity,
		TransactionID:   reservation.TransactionID,
	}
}

// EventType returns the event type name
func (e *StockReservationReleasedEvent) EventType() string {
	return EventTypeStockReservationReleased
}

// StockReservationExpiredEvent is raised when the expiry sweep releases a
// reservation whose TTL lapsed without being consumed
type StockReservationExpiredEvent struct {
	shared.BaseDomainEvent
	StockItemID   uuid.UUID       `json:"stock_item_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// NewStockReservationExpiredEvent creates a new StockReservationExpiredEvent
func NewStockReservationExpiredEvent(item *StockItem, reservation *StockReservation) *StockReservationExpiredEvent {
	return &StockReservationExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReservationExpired, AggregateTypeStockItem, item.ID),
		StockItemID:     item.ID,
		ReservationID:   reservation.ID,
		Quantity:        reservation.Quantity,
		TransactionID:   reservation.TransactionID,
	}
}

// EventType returns the event type name
func (e *StockReservationExpiredEvent) EventType() string {
	return EventTypeStockReservationExpired
}
