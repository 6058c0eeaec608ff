package persistence

import (
	"context"

	"gorm.io/gorm"

	apptrade "github.com/openbooks/backend/internal/application/trade"
	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/openbooks/backend/internal/domain/catalog"
	"github.com/openbooks/backend/internal/domain/stock"
	"github.com/openbooks/backend/internal/domain/trade"
)

// GormTransactionScope implements the coordinator's TransactionScope using
// GORM transactions: every repository handed to the callback runs on the
// same database transaction, so a failed apply or reverse leaves no
// partial stock or journal state behind.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. An error from fn rolls the
// transaction back; success commits it.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) TransactionRepo() trade.BusinessTransactionRepository {
	return NewGormBusinessTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) StockItemRepo() stock.StockItemRepository {
	return NewGormStockItemRepository(r.tx)
}

func (r *gormTransactionalRepositories) MovementRepo() stock.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReservationRepo() stock.StockReservationRepository {
	return NewGormStockReservationRepository(r.tx)
}

func (r *gormTransactionalRepositories) AccountRepo() accounting.LedgerAccountRepository {
	return NewGormLedgerAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) JournalRepo() accounting.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) WarehouseRepo() catalog.WarehouseRepository {
	return NewGormWarehouseRepository(r.tx)
}

var _ apptrade.TransactionScope = (*GormTransactionScope)(nil)
var _ apptrade.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
