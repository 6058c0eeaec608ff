package trade

import (
	"context"

	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/openbooks/backend/internal/domain/catalog"
	"github.com/openbooks/backend/internal/domain/stock"
	"github.com/openbooks/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the repositories the
// coordinator touches. Everything executed within one scope commits or
// rolls back as a single unit; a failed apply leaves no stock movement
// without its journal entries and vice versa.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a
// transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	TransactionRepo() trade.BusinessTransactionRepository
	StockItemRepo() stock.StockItemRepository
	MovementRepo() stock.StockMovementRepository
	ReservationRepo() stock.StockReservationRepository
	AccountRepo() accounting.LedgerAccountRepository
	JournalRepo() accounting.JournalEntryRepository
	ProductRepo() catalog.ProductRepository
	WarehouseRepo() catalog.WarehouseRepository
}

// NoOpTransactionScope runs the function against fixed repositories
// without a real transaction. Useful for tests.
type NoOpTransactionScope struct {
	Transactions trade.BusinessTransactionRepository
	StockItems   stock.StockItemRepository
	Movements    stock.StockMovementRepository
	Reservations stock.StockReservationRepository
	Accounts     accounting.LedgerAccountRepository
	Journal      accounting.JournalEntryRepository
	Products     catalog.ProductRepository
	Warehouses   catalog.WarehouseRepository
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// TransactionRepo returns the business transaction repository
func (s *NoOpTransactionScope) TransactionRepo() trade.BusinessTransactionRepository {
	return s.Transactions
}

// StockItemRepo returns the stock item repository
func (s *NoOpTransactionScope) StockItemRepo() stock.StockItemRepository {
	return s.StockItems
}

// MovementRepo returns the stock movement repository
func (s *NoOpTransactionScope) MovementRepo() stock.StockMovementRepository {
	return s.Movements
}

// ReservationRepo returns the stock reservation repository
func (s *NoOpTransactionScope) ReservationRepo() stock.StockReservationRepository {
	return s.Reservations
}

// AccountRepo returns the ledger account repository
func (s *NoOpTransactionScope) AccountRepo() accounting.LedgerAccountRepository {
	return s.Accounts
}

// JournalRepo returns the journal entry repository
func (s *NoOpTransactionScope) JournalRepo() accounting.JournalEntryRepository {
	return s.Journal
}

// ProductRepo returns the product repository
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.Products
}

// WarehouseRepo returns the warehouse repository
func (s *NoOpTransactionScope) WarehouseRepo() catalog.WarehouseRepository {
	return s.Warehouses
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
