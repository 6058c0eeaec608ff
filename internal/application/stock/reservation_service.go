package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// ReservationService manages soft holds against visible stock. A
// reservation never mutates the on-hand quantity, only the reserved
// counter; it is consumed by an apply or released, explicitly or by the
// TTL sweep.
type ReservationService struct {
	itemRepo        stock.StockItemRepository
	reservationRepo stock.StockReservationRepository
	defaultTTL      time.Duration
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewReservationService creates a new ReservationService
func NewReservationService(itemRepo stock.StockItemRepository, reservationRepo stock.StockReservationRepository, defaultTTL time.Duration) *ReservationService {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &ReservationService{
		itemRepo:        itemRepo,
		reservationRepo: reservationRepo,
		defaultTTL:      defaultTTL,
		logger:          zap.NewNop(),
	}
}

// SetEventPublisher sets the event publisher
func (s *ReservationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLogger sets the logger
func (s *ReservationService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Reserve places a soft hold for a pending transaction. Fails with
// INSUFFICIENT_STOCK when the available quantity cannot cover it.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveStockRequest) (*ReservationResponse, error) {
	item, err := s.itemRepo.FindByWarehouseAndProduct(ctx, req.WarehouseID, req.ProductID)
	if err != nil {
		return nil, err
	}

	ttl := s.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	reservation, err := item.Reserve(req.Quantity, req.TransactionID, time.Now().Add(ttl))
	if err != nil {
		return nil, err
	}

	if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Save(ctx, reservation); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, item)

	response := ToReservationResponse(reservation)
	return &response, nil
}

// Release returns a held quantity to visible stock
func (s *ReservationService) Release(ctx context.Context, reservationID uuid.UUID) error {
	reservation, err := s.reservationRepo.FindByID(ctx, reservationID)
	if err != nil {
		return err
	}

	item, err := s.itemRepo.FindByID(ctx, reservation.StockItemID)
	if err != nil {
		return err
	}

	if err := item.ReleaseReservation(reservation); err != nil {
		return err
	}

	if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
		return err
	}
	if err := s.reservationRepo.Save(ctx, reservation); err != nil {
		return err
	}

	s.publishEvents(ctx, item)
	return nil
}

// Get retrieves a reservation by ID
func (s *ReservationService) Get(ctx context.Context, reservationID uuid.UUID) (*ReservationResponse, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	response := ToReservationResponse(reservation)
	return &response, nil
}

// ExpiredReservationStats summarizes one expiry sweep
type ExpiredReservationStats struct {
	TotalExpired    int       `json:"total_expired"`
	SuccessReleased int       `json:"success_released"`
	FailedReleases  int       `json:"failed_releases"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// ReleaseExpired finds reservations whose TTL lapsed and releases them,
// publishing an expiry event for each. Abandoned drafts stop leaking
// reserved capacity this way.
func (s *ReservationService) ReleaseExpired(ctx context.Context, limit int) (*ExpiredReservationStats, error) {
	stats := &ExpiredReservationStats{ProcessedAt: time.Now()}

	expired, err := s.reservationRepo.FindExpired(ctx, stats.ProcessedAt, limit)
	if err != nil {
		s.logger.Error("Failed to find expired reservations", zap.Error(err))
		return nil, err
	}

	stats.TotalExpired = len(expired)
	if stats.TotalExpired == 0 {
		return stats, nil
	}

	s.logger.Info("Found expired stock reservations", zap.Int("count", stats.TotalExpired))

	for idx := range expired {
		reservation := &expired[idx]
		if err := s.releaseExpired(ctx, reservation); err != nil {
			s.logger.Error("Failed to release expired reservation",
				zap.String("reservation_id", reservation.ID.String()),
				zap.String("transaction_id", reservation.TransactionID.String()),
				zap.Error(err))
			stats.FailedReleases++
			continue
		}
		stats.SuccessReleased++
	}

	s.logger.Info("Completed reservation expiry sweep",
		zap.Int("total", stats.TotalExpired),
		zap.Int("released", stats.SuccessReleased),
		zap.Int("failed", stats.FailedReleases))

	return stats, nil
}

func (s *ReservationService) releaseExpired(ctx context.Context, reservation *stock.StockReservation) error {
	item, err := s.itemRepo.FindByID(ctx, reservation.StockItemID)
	if err != nil {
		// Release the hold record even without its item
		reservation.Release()
		return s.reservationRepo.Save(ctx, reservation)
	}

	if err := item.ReleaseReservation(reservation); err != nil {
		return err
	}
	if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
		return err
	}
	if err := s.reservationRepo.Save(ctx, reservation); err != nil {
		return err
	}

	item.ClearDomainEvents()
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, stock.NewStockReservationExpiredEvent(item, reservation))
	}

	return nil
}

func (s *ReservationService) publishEvents(ctx context.Context, item *stock.StockItem) {
	if s.eventPublisher == nil {
		item.ClearDomainEvents()
		return
	}
	events := item.GetDomainEvents()
	if len(events) > 0 {
		_ = s.eventPublisher.Publish(ctx, events...)
	}
	item.ClearDomainEvents()
}
