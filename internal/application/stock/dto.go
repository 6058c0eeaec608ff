package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/openbooks/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// ReserveStockRequest represents a request to place a soft hold on stock
type ReserveStockRequest struct {
	WarehouseID   uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID     uuid.UUID       `json:"product_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required,decimalgt0"`
	TransactionID uuid.UUID       `json:"transaction_id" binding:"required"`
	// TTLSeconds overrides the configured reservation TTL when positive
	TTLSeconds int `json:"ttl_seconds"`
}

// ReservationResponse represents a reservation in responses
type ReservationResponse struct {
	ID            uuid.UUID       `json:"id"`
	StockItemID   uuid.UUID       `json:"stock_item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	ExpireAt      time.Time       `json:"expire_at"`
	Released      bool            `json:"released"`
	Consumed      bool            `json:"consumed"`
}

// StockItemResponse represents a stock item in responses
type StockItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	OnHandQuantity    decimal.Decimal `json:"on_hand_quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	MovingAverageCost decimal.Decimal `json:"moving_average_cost"`
	Valuation         decimal.Decimal `json:"valuation"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MovementResponse represents a stock movement in responses
type MovementResponse struct {
	ID                 uuid.UUID       `json:"id"`
	StockItemID        uuid.UUID       `json:"stock_item_id"`
	WarehouseID        uuid.UUID       `json:"warehouse_id"`
	ProductID          uuid.UUID       `json:"product_id"`
	QuantityDelta      decimal.Decimal `json:"quantity_delta"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	Reason             string          `json:"reason"`
	TransactionID      uuid.UUID       `json:"transaction_id"`
	ReversedMovementID *uuid.UUID      `json:"reversed_movement_id,omitempty"`
	OnHandBefore       decimal.Decimal `json:"on_hand_before"`
	OnHandAfter        decimal.Decimal `json:"on_hand_after"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ValuationResponse represents the costed value of one stock item
type ValuationResponse struct {
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	OnHandQuantity    decimal.Decimal `json:"on_hand_quantity"`
	MovingAverageCost decimal.Decimal `json:"moving_average_cost"`
	Valuation         decimal.Decimal `json:"valuation"`
	Currency          string          `json:"currency"`
}

// ToReservationResponse converts a reservation to a response DTO
func ToReservationResponse(res *stock.StockReservation) ReservationResponse {
	return ReservationResponse{
		ID:            res.ID,
		StockItemID:   res.StockItemID,
		Quantity:      res.Quantity,
		TransactionID: res.TransactionID,
		ExpireAt:      res.ExpireAt,
		Released:      res.Released,
		Consumed:      res.Consumed,
	}
}

// ToStockItemResponse converts a stock item to a response DTO, valuing the
// on-hand stock in the given currency
func ToStockItemResponse(item *stock.StockItem, currency valueobject.Currency) StockItemResponse {
	return StockItemResponse{
		ID:                item.ID,
		WarehouseID:       item.WarehouseID,
		ProductID:         item.ProductID,
		OnHandQuantity:    item.OnHandQuantity,
		ReservedQuantity:  item.ReservedQuantity,
		AvailableQuantity: item.AvailableQuantity(),
		MovingAverageCost: item.MovingAverageCost,
		Valuation:         item.CurrentValuation(currency).Amount(),
		UpdatedAt:         item.UpdatedAt,
	}
}

// ToMovementResponse converts a movement to a response DTO
func ToMovementResponse(movement *stock.StockMovement) MovementResponse {
	return MovementResponse{
		ID:                 movement.ID,
		StockItemID:        movement.StockItemID,
		WarehouseID:        movement.WarehouseID,
		ProductID:          movement.ProductID,
		QuantityDelta:      movement.QuantityDelta,
		UnitCost:           movement.UnitCost,
		Reason:             movement.Reason.String(),
		TransactionID:      movement.TransactionID,
		ReversedMovementID: movement.ReversedMovementID,
		OnHandBefore:       movement.OnHandBefore,
		OnHandAfter:        movement.OnHandAfter,
		CreatedAt:          movement.CreatedAt,
	}
}
