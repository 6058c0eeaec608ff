package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/stock"
)

// GormStockReservationRepository implements StockReservationRepository using GORM
type GormStockReservationRepository struct {
	db *gorm.DB
}

// NewGormStockReservationRepository creates a new GormStockReservationRepository
func NewGormStockReservationRepository(db *gorm.DB) *GormStockReservationRepository {
	return &GormStockReservationRepository{db: db}
}

// Save creates or updates a reservation
func (r *GormStockReservationRepository) Save(ctx context.Context, reservation *stock.StockReservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

// FindByID finds a reservation by its ID
func (r *GormStockReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockReservation, error) {
	var reservation stock.StockReservation
	if err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// FindActiveByTransaction finds unreleased, unconsumed reservations for a transaction
func (r *GormStockReservationRepository) FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) ([]stock.StockReservation, error) {
	var reservations []stock.StockReservation
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND released = ? AND consumed = ?", transactionID, false, false).
		Order("created_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindExpired finds up to limit active reservations whose expiry has passed
func (r *GormStockReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]stock.StockReservation, error) {
	var reservations []stock.StockReservation
	query := r.db.WithContext(ctx).
		Where("expire_at < ? AND released = ? AND consumed = ?", now, false, false).
		Order("expire_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

var _ stock.StockReservationRepository = (*GormStockReservationRepository)(nil)
