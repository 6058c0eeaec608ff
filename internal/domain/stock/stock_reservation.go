package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockReservation is a soft hold against visible stock for a pending
// transaction. It does not change on-hand quantity; visible stock is
// on-hand minus reserved. Reservations expire after a TTL unless consumed
// by an apply or explicitly released.
type StockReservation struct {
	shared.BaseEntity
	StockItemID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_reservation_item"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_reservation_tx"`
	ExpireAt      time.Time       `gorm:"not null;index"`
	Released      bool            `gorm:"not null;default:false"`
	Consumed      bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (StockReservation) TableName() string {
	return "stock_reservations"
}

// NewStockReservation creates a new active reservation
func NewStockReservation(stockItemID uuid.UUID, quantity decimal.Decimal, transactionID uuid.UUID, expireAt time.Time) *StockReservation {
	return &StockReservation{
		BaseEntity:    shared.NewBaseEntity(),
		StockItemID:   stockItemID,
		Quantity:      quantity,
		TransactionID: transactionID,
		ExpireAt:      expireAt,
	}
}

// IsActive returns true if the reservation still holds stock
func (r *StockReservation) IsActive() bool {
	return !r.Released && !r.Consumed
}

// IsExpired returns true if the reservation has passed its TTL
func (r *StockReservation) IsExpired(now time.Time) bool {
	return r.IsActive() && r.ExpireAt.Before(now)
}

// Release marks the reservation as released
func (r *StockReservation) Release() {
	r.Released = true
	r.UpdatedAt = time.Now()
}

// Consume marks the reservation as consumed by an applied transaction
func (r *StockReservation) Consume() {
	r.Consumed = true
	r.UpdatedAt = time.Now()
}
