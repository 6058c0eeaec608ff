package trade

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/openbooks/backend/internal/domain/catalog"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/openbooks/backend/internal/domain/stock"
	"github.com/openbooks/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== In-memory repositories ====================

type memEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *memEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *memEventPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type memTransactionRepo struct {
	byID    map[uuid.UUID]*trade.BusinessTransaction
	counter int
	// conflictsLeft makes the next N SaveWithLock calls fail
	conflictsLeft int
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{byID: make(map[uuid.UUID]*trade.BusinessTransaction)}
}

// cloneTransaction detaches a stored aggregate. Reads hand out copies and
// writes store copies, so a discarded unit of work cannot leak mutations
// into the store the way a rolled-back database transaction does not.
func cloneTransaction(tx *trade.BusinessTransaction) *trade.BusinessTransaction {
	clone := *tx
	clone.Items = append([]trade.TransactionItem(nil), tx.Items...)
	if tx.WarehouseID != nil {
		id := *tx.WarehouseID
		clone.WarehouseID = &id
	}
	if tx.ReversesID != nil {
		id := *tx.ReversesID
		clone.ReversesID = &id
	}
	if tx.ReversedByID != nil {
		id := *tx.ReversedByID
		clone.ReversedByID = &id
	}
	if tx.ApprovedAt != nil {
		ts := *tx.ApprovedAt
		clone.ApprovedAt = &ts
	}
	if tx.CompletedAt != nil {
		ts := *tx.CompletedAt
		clone.CompletedAt = &ts
	}
	if tx.CancelledAt != nil {
		ts := *tx.CancelledAt
		clone.CancelledAt = &ts
	}
	return &clone
}

func (r *memTransactionRepo) FindByID(_ context.Context, id uuid.UUID) (*trade.BusinessTransaction, error) {
	tx, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (r *memTransactionRepo) FindByNumber(_ context.Context, number string) (*trade.BusinessTransaction, error) {
	for _, tx := range r.byID {
		if tx.Number == number {
			return cloneTransaction(tx), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTransactionRepo) FindAll(_ context.Context, _ shared.Filter) ([]*trade.BusinessTransaction, int64, error) {
	out := make([]*trade.BusinessTransaction, 0, len(r.byID))
	for _, tx := range r.byID {
		out = append(out, tx)
	}
	return out, int64(len(out)), nil
}

func (r *memTransactionRepo) FindByStatus(_ context.Context, status trade.TransactionStatus, _ shared.Filter) ([]*trade.BusinessTransaction, int64, error) {
	var out []*trade.BusinessTransaction
	for _, tx := range r.byID {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memTransactionRepo) Save(_ context.Context, tx *trade.BusinessTransaction) error {
	r.byID[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *memTransactionRepo) SaveWithLock(_ context.Context, tx *trade.BusinessTransaction) error {
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return shared.ErrConcurrentModification
	}
	r.byID[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *memTransactionRepo) DeleteDraft(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *memTransactionRepo) NextNumber(_ context.Context, txType trade.TransactionType) (string, error) {
	r.counter++
	return fmt.Sprintf("%s-%04d", txType, r.counter), nil
}

type memStockItemRepo struct {
	byID map[uuid.UUID]*stock.StockItem
}

func newMemStockItemRepo() *memStockItemRepo {
	return &memStockItemRepo{byID: make(map[uuid.UUID]*stock.StockItem)}
}

func (r *memStockItemRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockItem, error) {
	item, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return item, nil
}

func (r *memStockItemRepo) FindByWarehouseAndProduct(_ context.Context, warehouseID, productID uuid.UUID) (*stock.StockItem, error) {
	for _, item := range r.byID {
		if item.WarehouseID == warehouseID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memStockItemRepo) FindAll(_ context.Context, _ shared.Filter) ([]stock.StockItem, error) {
	out := make([]stock.StockItem, 0, len(r.byID))
	for _, item := range r.byID {
		out = append(out, *item)
	}
	return out, nil
}

func (r *memStockItemRepo) GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID) (*stock.StockItem, error) {
	if item, err := r.FindByWarehouseAndProduct(ctx, warehouseID, productID); err == nil {
		return item, nil
	}
	item, err := stock.NewStockItem(warehouseID, productID)
	if err != nil {
		return nil, err
	}
	r.byID[item.ID] = item
	return item, nil
}

func (r *memStockItemRepo) Save(_ context.Context, item *stock.StockItem) error {
	r.byID[item.ID] = item
	return nil
}

func (r *memStockItemRepo) SaveWithLock(_ context.Context, item *stock.StockItem) error {
	r.byID[item.ID] = item
	return nil
}

type memMovementRepo struct {
	movements []stock.StockMovement
}

func (r *memMovementRepo) Append(_ context.Context, movement *stock.StockMovement) error {
	for _, m := range r.movements {
		if m.ReversedMovementID != nil && movement.ReversedMovementID != nil &&
			*m.ReversedMovementID == *movement.ReversedMovementID {
			return shared.ErrAlreadyReversed
		}
	}
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *memMovementRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockMovement, error) {
	for idx := range r.movements {
		if r.movements[idx].ID == id {
			return &r.movements[idx], nil
		}
	}
	return nil, shared.ErrMovementNotFound
}

func (r *memMovementRepo) FindByTransaction(_ context.Context, transactionID uuid.UUID) ([]stock.StockMovement, error) {
	var out []stock.StockMovement
	for _, m := range r.movements {
		if m.TransactionID == transactionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) FindByStockItem(_ context.Context, stockItemID uuid.UUID, _ shared.Filter) ([]stock.StockMovement, error) {
	var out []stock.StockMovement
	for _, m := range r.movements {
		if m.StockItemID == stockItemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) FindReversalOf(_ context.Context, movementID uuid.UUID) (*stock.StockMovement, error) {
	for idx := range r.movements {
		if r.movements[idx].ReversedMovementID != nil && *r.movements[idx].ReversedMovementID == movementID {
			return &r.movements[idx], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) SumDeltaByStockItem(_ context.Context, stockItemID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, m := range r.movements {
		if m.StockItemID == stockItemID {
			sum = sum.Add(m.QuantityDelta)
		}
	}
	return sum, nil
}

type memReservationRepo struct {
	byID map[uuid.UUID]*stock.StockReservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{byID: make(map[uuid.UUID]*stock.StockReservation)}
}

func (r *memReservationRepo) Save(_ context.Context, reservation *stock.StockReservation) error {
	r.byID[reservation.ID] = reservation
	return nil
}

func (r *memReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockReservation, error) {
	res, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return res, nil
}

func (r *memReservationRepo) FindActiveByTransaction(_ context.Context, transactionID uuid.UUID) ([]stock.StockReservation, error) {
	var out []stock.StockReservation
	for _, res := range r.byID {
		if res.TransactionID == transactionID && res.IsActive() {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *memReservationRepo) FindExpired(_ context.Context, now time.Time, limit int) ([]stock.StockReservation, error) {
	var out []stock.StockReservation
	for _, res := range r.byID {
		if res.IsActive() && res.IsExpired(now) {
			out = append(out, *res)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memAccountRepo struct {
	byCode map[string]*accounting.LedgerAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byCode: make(map[string]*accounting.LedgerAccount)}
}

func (r *memAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*accounting.LedgerAccount, error) {
	for _, account := range r.byCode {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memAccountRepo) FindByCode(_ context.Context, code string) (*accounting.LedgerAccount, error) {
	account, ok := r.byCode[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return account, nil
}

func (r *memAccountRepo) FindAll(_ context.Context, _ shared.Filter) ([]accounting.LedgerAccount, error) {
	out := make([]accounting.LedgerAccount, 0, len(r.byCode))
	for _, account := range r.byCode {
		out = append(out, *account)
	}
	return out, nil
}

func (r *memAccountRepo) Save(_ context.Context, account *accounting.LedgerAccount) error {
	r.byCode[account.Code] = account
	return nil
}

type memJournalRepo struct {
	entries []accounting.JournalEntry
}

func (r *memJournalRepo) AppendBatch(_ context.Context, entries []*accounting.JournalEntry) error {
	for _, entry := range entries {
		r.entries = append(r.entries, *entry)
	}
	return nil
}

func (r *memJournalRepo) FindByTransaction(_ context.Context, transactionID uuid.UUID) ([]accounting.JournalEntry, error) {
	var out []accounting.JournalEntry
	for _, entry := range r.entries {
		if entry.TransactionID == transactionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memJournalRepo) FindByAccount(_ context.Context, accountID uuid.UUID, _ shared.Filter) ([]accounting.JournalEntry, error) {
	var out []accounting.JournalEntry
	for _, entry := range r.entries {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memJournalRepo) HasReversal(_ context.Context, transactionID uuid.UUID) (bool, error) {
	for _, entry := range r.entries {
		if entry.TransactionID == transactionID && entry.Reversal {
			return true, nil
		}
	}
	return false, nil
}

func (r *memJournalRepo) SumByAccount(_ context.Context, accountID uuid.UUID, asOf *time.Time) (accounting.DebitCreditTotals, error) {
	totals := accounting.DebitCreditTotals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, entry := range r.entries {
		if entry.AccountID != accountID {
			continue
		}
		if asOf != nil && entry.PostedAt.After(*asOf) {
			continue
		}
		totals.Debit = totals.Debit.Add(entry.Debit)
		totals.Credit = totals.Credit.Add(entry.Credit)
	}
	return totals, nil
}

type memProductRepo struct {
	byID map[uuid.UUID]*catalog.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{byID: make(map[uuid.UUID]*catalog.Product)}
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return product, nil
}

func (r *memProductRepo) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	for _, product := range r.byID {
		if product.SKU == sku {
			return product, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memProductRepo) FindAll(_ context.Context, _ shared.Filter) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(r.byID))
	for _, product := range r.byID {
		out = append(out, *product)
	}
	return out, nil
}

func (r *memProductRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *memProductRepo) Save(_ context.Context, product *catalog.Product) error {
	r.byID[product.ID] = product
	return nil
}

type memWarehouseRepo struct {
	byID map[uuid.UUID]*catalog.Warehouse
}

func newMemWarehouseRepo() *memWarehouseRepo {
	return &memWarehouseRepo{byID: make(map[uuid.UUID]*catalog.Warehouse)}
}

func (r *memWarehouseRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Warehouse, error) {
	warehouse, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return warehouse, nil
}

func (r *memWarehouseRepo) FindByCode(_ context.Context, code string) (*catalog.Warehouse, error) {
	for _, warehouse := range r.byID {
		if warehouse.Code == code {
			return warehouse, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memWarehouseRepo) FindAll(_ context.Context, _ shared.Filter) ([]catalog.Warehouse, error) {
	out := make([]catalog.Warehouse, 0, len(r.byID))
	for _, warehouse := range r.byID {
		out = append(out, *warehouse)
	}
	return out, nil
}

func (r *memWarehouseRepo) Save(_ context.Context, warehouse *catalog.Warehouse) error {
	r.byID[warehouse.ID] = warehouse
	return nil
}

// ==================== Fixture ====================

type fixture struct {
	coordinator  *TransactionCoordinator
	publisher    *memEventPublisher
	transactions *memTransactionRepo
	stockItems   *memStockItemRepo
	movements    *memMovementRepo
	journal      *memJournalRepo
	accounts     *memAccountRepo
	reservations *memReservationRepo
	product      *catalog.Product
	warehouse    *catalog.Warehouse
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()

	f := &fixture{
		publisher:    &memEventPublisher{},
		transactions: newMemTransactionRepo(),
		stockItems:   newMemStockItemRepo(),
		movements:    &memMovementRepo{},
		journal:      &memJournalRepo{},
		accounts:     newMemAccountRepo(),
		reservations: newMemReservationRepo(),
	}

	seedAccount := func(code, name string, accountType accounting.AccountType) {
		account, err := accounting.NewLedgerAccount(code, name, accountType, "", decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, f.accounts.Save(context.Background(), account))
	}
	seedAccount(accounting.AccountCodeCash, "Cash", accounting.AccountTypeAsset)
	seedAccount(accounting.AccountCodeAccountsReceivable, "Accounts Receivable", accounting.AccountTypeAsset)
	seedAccount(accounting.AccountCodeInventory, "Inventory", accounting.AccountTypeAsset)
	seedAccount(accounting.AccountCodeAccountsPayable, "Accounts Payable", accounting.AccountTypeLiability)
	seedAccount(accounting.AccountCodeSalesRevenue, "Sales Revenue", accounting.AccountTypeIncome)
	seedAccount(accounting.AccountCodeSalesReturns, "Sales Returns", accounting.AccountTypeIncome)
	seedAccount(accounting.AccountCodeCOGS, "Cost of Goods Sold", accounting.AccountTypeExpense)

	price, err := valueobject.NewMoneyUSDFromString("15.00")
	require.NoError(t, err)
	cost, err := valueobject.NewMoneyUSDFromString("8.00")
	require.NoError(t, err)
	f.product, err = catalog.NewProduct("WID-1", "Widget", "pcs", price, cost)
	require.NoError(t, err)

	f.warehouse, err = catalog.NewWarehouse("WH-1", "Main Warehouse", "")
	require.NoError(t, err)

	scope := &NoOpTransactionScope{
		Transactions: f.transactions,
		StockItems:   f.stockItems,
		Movements:    f.movements,
		Reservations: f.reservations,
		Accounts:     f.accounts,
		Journal:      f.journal,
	}
	products := newMemProductRepo()
	require.NoError(t, products.Save(context.Background(), f.product))
	warehouses := newMemWarehouseRepo()
	require.NoError(t, warehouses.Save(context.Background(), f.warehouse))
	scope.Products = products
	scope.Warehouses = warehouses

	f.coordinator = NewTransactionCoordinator(scope, policy)
	f.coordinator.SetEventPublisher(f.publisher)

	return f
}

func (f *fixture) createApplied(t *testing.T, txType trade.TransactionType, quantity, unitPrice string) TransactionResponse {
	t.Helper()
	ctx := context.Background()

	qty, err := decimal.NewFromString(quantity)
	require.NoError(t, err)
	price, err := decimal.NewFromString(unitPrice)
	require.NoError(t, err)

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(txType),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		WarehouseID:      &f.warehouse.ID,
		Items: []CreateTransactionItemInput{
			{ProductID: f.product.ID, Quantity: qty, UnitPrice: price},
		},
	})
	require.NoError(t, err)

	_, err = f.coordinator.Submit(ctx, created.ID)
	require.NoError(t, err)

	applied, err := f.coordinator.Apply(ctx, created.ID)
	require.NoError(t, err)
	return *applied
}

func (f *fixture) stockItem(t *testing.T) *stock.StockItem {
	t.Helper()
	item, err := f.stockItems.FindByWarehouseAndProduct(context.Background(), f.warehouse.ID, f.product.ID)
	require.NoError(t, err)
	return item
}

// ==================== Tests ====================

func TestCoordinator_ApplyPurchase(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	applied := f.createApplied(t, trade.TransactionTypePurchase, "100", "8.00")

	assert.Equal(t, trade.StatusApproved.String(), applied.Status)
	assert.Equal(t, "800", applied.TotalAmount.String())

	item := f.stockItem(t)
	assert.Equal(t, "100", item.OnHandQuantity.String())
	assert.Equal(t, "8", item.MovingAverageCost.String())

	entries, err := f.journal.FindByTransaction(context.Background(), applied.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NoError(t, validateStoredBatch(entries))
}

func TestCoordinator_PurchaseThenSaleScenario(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	f.createApplied(t, trade.TransactionTypePurchase, "100", "8.00")
	sale := f.createApplied(t, trade.TransactionTypeSale, "10", "15.00")

	item := f.stockItem(t)
	assert.Equal(t, "90", item.OnHandQuantity.String())
	assert.Equal(t, "8", item.MovingAverageCost.String())

	entries, err := f.journal.FindByTransaction(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byAccount := make(map[uuid.UUID]accounting.JournalEntry)
	for _, entry := range entries {
		byAccount[entry.AccountID] = entry
	}
	receivable, err := f.accounts.FindByCode(ctx, accounting.AccountCodeAccountsReceivable)
	require.NoError(t, err)
	revenue, err := f.accounts.FindByCode(ctx, accounting.AccountCodeSalesRevenue)
	require.NoError(t, err)
	cogs, err := f.accounts.FindByCode(ctx, accounting.AccountCodeCOGS)
	require.NoError(t, err)
	inventory, err := f.accounts.FindByCode(ctx, accounting.AccountCodeInventory)
	require.NoError(t, err)

	assert.Equal(t, "150", byAccount[receivable.ID].Debit.String())
	assert.Equal(t, "150", byAccount[revenue.ID].Credit.String())
	assert.Equal(t, "80", byAccount[cogs.ID].Debit.String())
	assert.Equal(t, "80", byAccount[inventory.ID].Credit.String())

	t.Run("revenue balance is derived from entries", func(t *testing.T) {
		totals, err := f.journal.SumByAccount(ctx, revenue.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "150", revenue.BalanceFrom(totals.Debit, totals.Credit).String())
	})

	t.Run("on-hand equals the movement sum", func(t *testing.T) {
		sum, err := f.movements.SumDeltaByStockItem(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, sum.Equal(item.OnHandQuantity))
	})

	t.Run("events were published", func(t *testing.T) {
		assert.NotEmpty(t, f.publisher.byType(trade.EventTypeTransactionApplied))
		assert.NotEmpty(t, f.publisher.byType(stock.EventTypeStockMovementPosted))
	})
}

func TestCoordinator_OversellFailsWithZeroSideEffects(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	f.createApplied(t, trade.TransactionTypePurchase, "100", "8.00")

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeSale),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		WarehouseID:      &f.warehouse.ID,
		Items: []CreateTransactionItemInput{
			{ProductID: f.product.ID, Quantity: decimal.NewFromInt(1000), UnitPrice: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)
	_, err = f.coordinator.Submit(ctx, created.ID)
	require.NoError(t, err)

	_, err = f.coordinator.Apply(ctx, created.ID)

	require.Error(t, err)
	assert.True(t, shared.IsCode(err, "INSUFFICIENT_STOCK"))

	movements, merr := f.movements.FindByTransaction(ctx, created.ID)
	require.NoError(t, merr)
	assert.Empty(t, movements)

	entries, jerr := f.journal.FindByTransaction(ctx, created.ID)
	require.NoError(t, jerr)
	assert.Empty(t, entries)

	assert.Equal(t, "100", f.stockItem(t).OnHandQuantity.String())
}

func TestCoordinator_NegativeStockPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.AllowNegativeStock = true
	f := newFixture(t, policy)

	f.createApplied(t, trade.TransactionTypeSale, "5", "15.00")

	assert.Equal(t, "-5", f.stockItem(t).OnHandQuantity.String())
}

func TestCoordinator_ReverseRoundTrip(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	f.createApplied(t, trade.TransactionTypePurchase, "100", "8.00")
	sale := f.createApplied(t, trade.TransactionTypeSale, "10", "15.00")

	reversed, err := f.coordinator.Reverse(ctx, sale.ID, ReverseTransactionRequest{Kind: "return"})
	require.NoError(t, err)

	item := f.stockItem(t)
	assert.Equal(t, "100", item.OnHandQuantity.String())
	assert.Equal(t, "8", item.MovingAverageCost.String())

	assert.Equal(t, trade.StatusReturned.String(), reversed.Original.Status)
	require.NotNil(t, reversed.Compensating)
	assert.Equal(t, trade.TransactionTypeSaleReturn.String(), reversed.Compensating.Type)
	assert.Equal(t, &sale.ID, reversed.Compensating.ReversesID)

	entries, err := f.journal.FindByTransaction(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, entries, 8)
	reversals := 0
	for _, entry := range entries {
		if entry.Reversal {
			reversals++
		}
	}
	assert.Equal(t, 4, reversals)

	t.Run("account balances return to pre-sale values", func(t *testing.T) {
		for _, code := range []string{
			accounting.AccountCodeAccountsReceivable,
			accounting.AccountCodeSalesRevenue,
			accounting.AccountCodeCOGS,
		} {
			account, err := f.accounts.FindByCode(ctx, code)
			require.NoError(t, err)
			totals, err := f.journal.SumByAccount(ctx, account.ID, nil)
			require.NoError(t, err)
			assert.Truef(t, account.BalanceFrom(totals.Debit, totals.Credit).IsZero(), "account %s", code)
		}
	})

	t.Run("second reverse fails", func(t *testing.T) {
		_, err := f.coordinator.Reverse(ctx, sale.ID, ReverseTransactionRequest{Kind: "return"})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, "ALREADY_REVERSED"))
	})

	t.Run("reversed event was published", func(t *testing.T) {
		assert.Len(t, f.publisher.byType(trade.EventTypeTransactionReversed), 1)
	})
}

func TestCoordinator_ReverseRequiresAppliedTransaction(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeSale),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		WarehouseID:      &f.warehouse.ID,
		Items: []CreateTransactionItemInput{
			{ProductID: f.product.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)

	_, err = f.coordinator.Reverse(ctx, created.ID, ReverseTransactionRequest{Kind: "cancel", Reason: "nope"})

	require.Error(t, err)
}

func TestCoordinator_ApplyDraftFailsInvalidTransition(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeSale),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		WarehouseID:      &f.warehouse.ID,
		Items: []CreateTransactionItemInput{
			{ProductID: f.product.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)

	_, err = f.coordinator.Apply(ctx, created.ID)

	require.Error(t, err)
	assert.True(t, shared.IsCode(err, "INVALID_TRANSITION"))
}

func TestCoordinator_TaxPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.TaxRate = decimal.NewFromFloat(0.10)
	f := newFixture(t, policy)
	ctx := context.Background()

	f.createApplied(t, trade.TransactionTypePurchase, "100", "8.00")

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeSale),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		WarehouseID:      &f.warehouse.ID,
		Items: []CreateTransactionItemInput{
			{ProductID: f.product.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)

	submitted, err := f.coordinator.Submit(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "15", submitted.TaxAmount.String())
	assert.Equal(t, "165", submitted.TotalAmount.String())

	applied, err := f.coordinator.Apply(ctx, created.ID)
	require.NoError(t, err)

	entries, err := f.journal.FindByTransaction(ctx, applied.ID)
	require.NoError(t, err)
	require.NoError(t, validateStoredBatch(entries))
}

func TestCoordinator_UpfrontPaymentSplit(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	f.createApplied(t, trade.TransactionTypePurchase, "100", "8.00")

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeSale),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		WarehouseID:      &f.warehouse.ID,
		Items: []CreateTransactionItemInput{
			{ProductID: f.product.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)

	paid, err := f.coordinator.RecordPayment(ctx, created.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)
	assert.Equal(t, "60", paid.PaidAmount.String())

	_, err = f.coordinator.Submit(ctx, created.ID)
	require.NoError(t, err)
	applied, err := f.coordinator.Apply(ctx, created.ID)
	require.NoError(t, err)

	// Cash takes the paid portion, receivable only the outstanding rest
	entries, err := f.journal.FindByTransaction(ctx, applied.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	require.NoError(t, validateStoredBatch(entries))

	byAccount := make(map[uuid.UUID]accounting.JournalEntry)
	for _, entry := range entries {
		byAccount[entry.AccountID] = entry
	}
	cash, err := f.accounts.FindByCode(ctx, accounting.AccountCodeCash)
	require.NoError(t, err)
	receivable, err := f.accounts.FindByCode(ctx, accounting.AccountCodeAccountsReceivable)
	require.NoError(t, err)

	assert.Equal(t, "60", byAccount[cash.ID].Debit.String())
	assert.Equal(t, "90", byAccount[receivable.ID].Debit.String())

	t.Run("overpayment is rejected", func(t *testing.T) {
		other, err := f.coordinator.Create(ctx, CreateTransactionRequest{
			Type:             string(trade.TransactionTypeSale),
			CounterpartyID:   uuid.New(),
			CounterpartyName: "Acme Ltd",
			WarehouseID:      &f.warehouse.ID,
			Items: []CreateTransactionItemInput{
				{ProductID: f.product.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(15)},
			},
		})
		require.NoError(t, err)

		_, err = f.coordinator.RecordPayment(ctx, other.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(200)})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, "INVALID_AMOUNT"))
	})

	t.Run("payment after apply is rejected", func(t *testing.T) {
		_, err := f.coordinator.RecordPayment(ctx, applied.ID, RecordPaymentRequest{Amount: decimal.NewFromInt(10)})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, "INVALID_STATE"))
	})
}

func TestCoordinator_ConflictRetry(t *testing.T) {
	policy := DefaultPolicy()
	policy.RetryBaseDelay = time.Millisecond
	f := newFixture(t, policy)
	ctx := context.Background()

	f.createApplied(t, trade.TransactionTypePurchase, "100", "8.00")

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeSale),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		WarehouseID:      &f.warehouse.ID,
		Items: []CreateTransactionItemInput{
			{ProductID: f.product.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(15)},
		},
	})
	require.NoError(t, err)
	_, err = f.coordinator.Submit(ctx, created.ID)
	require.NoError(t, err)

	t.Run("recovers from transient conflicts", func(t *testing.T) {
		f.transactions.conflictsLeft = 2

		applied, err := f.coordinator.Apply(ctx, created.ID)

		require.NoError(t, err)
		assert.Equal(t, trade.StatusApproved.String(), applied.Status)
		assert.Zero(t, f.transactions.conflictsLeft)

		stored, err := f.coordinator.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.StatusApproved.String(), stored.Status)
	})

	t.Run("surfaces persistent conflicts", func(t *testing.T) {
		purchase, err := f.coordinator.Create(ctx, CreateTransactionRequest{
			Type:             string(trade.TransactionTypePurchase),
			CounterpartyID:   uuid.New(),
			CounterpartyName: "Supplier Co",
			WarehouseID:      &f.warehouse.ID,
			Items: []CreateTransactionItemInput{
				{ProductID: f.product.ID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(8)},
			},
		})
		require.NoError(t, err)
		_, err = f.coordinator.Submit(ctx, purchase.ID)
		require.NoError(t, err)

		f.transactions.conflictsLeft = 100
		_, err = f.coordinator.Apply(ctx, purchase.ID)
		f.transactions.conflictsLeft = 0

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, "CONCURRENT_MODIFICATION"))
	})
}

func TestCoordinator_DeleteDraft(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeSale),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
	})
	require.NoError(t, err)

	require.NoError(t, f.coordinator.DeleteDraft(ctx, created.ID))

	_, err = f.coordinator.Get(ctx, created.ID)
	require.Error(t, err)

	t.Run("applied transactions cannot be deleted", func(t *testing.T) {
		applied := f.createApplied(t, trade.TransactionTypePurchase, "1", "8.00")

		err := f.coordinator.DeleteDraft(ctx, applied.ID)

		require.Error(t, err)
	})
}

func TestCoordinator_BankTransaction(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	amount := decimal.NewFromInt(500)
	created, err := f.coordinator.Create(ctx, CreateTransactionRequest{
		Type:             string(trade.TransactionTypeBank),
		CounterpartyID:   uuid.New(),
		CounterpartyName: "Acme Ltd",
		Amount:           &amount,
	})
	require.NoError(t, err)
	_, err = f.coordinator.Submit(ctx, created.ID)
	require.NoError(t, err)

	applied, err := f.coordinator.Apply(ctx, created.ID)
	require.NoError(t, err)

	entries, err := f.journal.FindByTransaction(ctx, applied.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NoError(t, validateStoredBatch(entries))

	movements, err := f.movements.FindByTransaction(ctx, applied.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

// validateStoredBatch re-checks the double-entry invariant on persisted
// entries grouped by reversal flag.
func validateStoredBatch(entries []accounting.JournalEntry) error {
	var originals, reversals []*accounting.JournalEntry
	for idx := range entries {
		if entries[idx].Reversal {
			reversals = append(reversals, &entries[idx])
		} else {
			originals = append(originals, &entries[idx])
		}
	}
	if len(originals) > 0 {
		if err := accounting.ValidateBatch(originals); err != nil {
			return err
		}
	}
	if len(reversals) > 0 {
		return accounting.ValidateBatch(reversals)
	}
	return nil
}
