package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/openbooks/backend/internal/domain/stock"
)

// StockService answers stock queries: items, movement history, valuation
// and log-vs-counter reconciliation. All mutation goes through the
// transaction coordinator; this service only reads.
type StockService struct {
	itemRepo     stock.StockItemRepository
	movementRepo stock.StockMovementRepository
	currency     valueobject.Currency
}

// NewStockService creates a new StockService. Valuations are denominated
// in the given currency; empty means the system default.
func NewStockService(itemRepo stock.StockItemRepository, movementRepo stock.StockMovementRepository, currency valueobject.Currency) *StockService {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &StockService{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		currency:     currency,
	}
}

// GetItem retrieves the stock item for a warehouse-product pair
func (s *StockService) GetItem(ctx context.Context, warehouseID, productID uuid.UUID) (*StockItemResponse, error) {
	item, err := s.itemRepo.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	response := ToStockItemResponse(item, s.currency)
	return &response, nil
}

// List retrieves stock items with pagination
func (s *StockService) List(ctx context.Context, filter shared.Filter) ([]StockItemResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items, err := s.itemRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]StockItemResponse, 0, len(items))
	for idx := range items {
		responses = append(responses, ToStockItemResponse(&items[idx], s.currency))
	}
	return responses, nil
}

// Movements retrieves the movement log for a stock item, newest first
func (s *StockService) Movements(ctx context.Context, warehouseID, productID uuid.UUID, filter shared.Filter) ([]MovementResponse, error) {
	item, err := s.itemRepo.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}

	movements, err := s.movementRepo.FindByStockItem(ctx, item.ID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]MovementResponse, 0, len(movements))
	for idx := range movements {
		responses = append(responses, ToMovementResponse(&movements[idx]))
	}
	return responses, nil
}

// Valuation returns on-hand quantity times moving average cost
func (s *StockService) Valuation(ctx context.Context, warehouseID, productID uuid.UUID) (*ValuationResponse, error) {
	item, err := s.itemRepo.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}

	valuation := item.CurrentValuation(s.currency)
	return &ValuationResponse{
		WarehouseID:       item.WarehouseID,
		ProductID:         item.ProductID,
		OnHandQuantity:    item.OnHandQuantity,
		MovingAverageCost: item.MovingAverageCost,
		Valuation:         valuation.Amount(),
		Currency:          string(valuation.Currency()),
	}, nil
}

// Reconcile verifies that the on-hand counter equals the sum of all
// movement deltas in the log. A mismatch means the counter drifted and
// the log is authoritative.
func (s *StockService) Reconcile(ctx context.Context, warehouseID, productID uuid.UUID) error {
	item, err := s.itemRepo.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	if err != nil {
		return err
	}

	sum, err := s.movementRepo.SumDeltaByStockItem(ctx, item.ID)
	if err != nil {
		return err
	}

	if !sum.Equal(item.OnHandQuantity) {
		return shared.NewDomainError("STOCK_DRIFT", "On-hand counter does not match the movement log")
	}
	return nil
}
