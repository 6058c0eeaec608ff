package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockItemRepository defines persistence operations for stock items
type StockItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockItem, error)
	FindByWarehouseAndProduct(ctx context.Context, warehouseID, productID uuid.UUID) (*StockItem, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]StockItem, error)
	// GetOrCreate returns the stock item for the warehouse-product pair,
	// creating a zero row if none exists yet
	GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID) (*StockItem, error)
	Save(ctx context.Context, item *StockItem) error
	// SaveWithLock persists the item only if the stored version matches
	// item.Version-1, failing with CONCURRENT_MODIFICATION otherwise
	SaveWithLock(ctx context.Context, item *StockItem) error
}

// StockMovementRepository is append-only: movements are created, never
// updated or deleted
type StockMovementRepository interface {
	Append(ctx context.Context, movement *StockMovement) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]StockMovement, error)
	FindByStockItem(ctx context.Context, stockItemID uuid.UUID, filter shared.Filter) ([]StockMovement, error)
	// FindReversalOf returns the movement that reverses the given movement,
	// or NOT_FOUND if it has not been reversed
	FindReversalOf(ctx context.Context, movementID uuid.UUID) (*StockMovement, error)
	// SumDeltaByStockItem sums all quantity deltas for a stock item; used by
	// reconciliation to verify the on-hand counter against the log
	SumDeltaByStockItem(ctx context.Context, stockItemID uuid.UUID) (decimal.Decimal, error)
}

// StockReservationRepository defines persistence operations for reservations
type StockReservationRepository interface {
	Save(ctx context.Context, reservation *StockReservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockReservation, error)
	FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) ([]StockReservation, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]StockReservation, error)
}
