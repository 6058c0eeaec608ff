package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/openbooks/backend/internal/domain/stock"
	"github.com/openbooks/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Policy holds the transaction-type-independent posting policy
type Policy struct {
	// TaxRate applies to the discounted subtotal of sales and sale returns
	TaxRate decimal.Decimal
	// AllowNegativeStock permits outbound movements to take on-hand
	// quantity below zero instead of failing with INSUFFICIENT_STOCK
	AllowNegativeStock bool
	// MaxRetries bounds the retries on write conflicts before
	// CONCURRENT_MODIFICATION surfaces to the caller
	MaxRetries int
	// RetryBaseDelay is the first backoff interval; it doubles per attempt
	RetryBaseDelay time.Duration
}

// DefaultPolicy returns the policy used when none is configured
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:            decimal.Zero,
		AllowNegativeStock: false,
		MaxRetries:         3,
		RetryBaseDelay:     50 * time.Millisecond,
	}
}

// TransactionCoordinator is the single entry point for applying and
// reversing business transactions. Apply posts stock movements and a
// balanced journal batch and advances the status, all inside one unit of
// work; Reverse posts the compensating movements and entries. No other
// code path mutates stock or the journal.
type TransactionCoordinator struct {
	txScope        TransactionScope
	policy         Policy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewTransactionCoordinator creates a new TransactionCoordinator
func NewTransactionCoordinator(txScope TransactionScope, policy Policy) *TransactionCoordinator {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultPolicy().MaxRetries
	}
	if policy.RetryBaseDelay <= 0 {
		policy.RetryBaseDelay = DefaultPolicy().RetryBaseDelay
	}
	return &TransactionCoordinator{
		txScope: txScope,
		policy:  policy,
		logger:  zap.NewNop(),
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (c *TransactionCoordinator) SetEventPublisher(publisher shared.EventPublisher) {
	c.eventPublisher = publisher
}

// SetLogger sets the logger
func (c *TransactionCoordinator) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Create creates a new draft transaction
func (c *TransactionCoordinator) Create(ctx context.Context, req CreateTransactionRequest) (*TransactionResponse, error) {
	txType := trade.TransactionType(req.Type)
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", fmt.Sprintf("Invalid transaction type: %s", req.Type))
	}

	var response *TransactionResponse
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.TransactionRepo().NextNumber(ctx, txType)
		if err != nil {
			return err
		}

		tx, err := trade.NewBusinessTransaction(number, txType, req.CounterpartyID, req.CounterpartyName, valueobject.Currency(req.Currency))
		if err != nil {
			return err
		}
		tx.Remark = req.Remark

		if req.WarehouseID != nil {
			if err := c.requireWarehouse(ctx, repos, *req.WarehouseID); err != nil {
				return err
			}
			if err := tx.SetWarehouse(*req.WarehouseID); err != nil {
				return err
			}
		}

		for _, input := range req.Items {
			if err := c.addItem(ctx, repos, tx, input.ProductID, input.Quantity, input.UnitPrice); err != nil {
				return err
			}
		}

		if req.Discount != nil {
			discount, err := valueobject.NewMoney(*req.Discount, tx.Currency)
			if err != nil {
				return err
			}
			if err := tx.ApplyDiscount(discount); err != nil {
				return err
			}
		}

		if req.Amount != nil {
			amount, err := valueobject.NewMoney(*req.Amount, tx.Currency)
			if err != nil {
				return err
			}
			if err := tx.SetBankAmount(amount); err != nil {
				return err
			}
		}

		if err := repos.TransactionRepo().Save(ctx, tx); err != nil {
			return err
		}

		c.publishEvents(ctx, tx)
		resp := ToTransactionResponse(tx)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Get retrieves a transaction by ID
func (c *TransactionCoordinator) Get(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	var response *TransactionResponse
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp := ToTransactionResponse(tx)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// List retrieves transactions with filtering and pagination
func (c *TransactionCoordinator) List(ctx context.Context, filter TransactionListFilter) ([]TransactionResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	var responses []TransactionResponse
	var total int64
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var txs []*trade.BusinessTransaction
		var err error
		if filter.Status != nil {
			txs, total, err = repos.TransactionRepo().FindByStatus(ctx, trade.TransactionStatus(*filter.Status), domainFilter)
		} else {
			txs, total, err = repos.TransactionRepo().FindAll(ctx, domainFilter)
		}
		if err != nil {
			return err
		}
		responses = make([]TransactionResponse, 0, len(txs))
		for _, tx := range txs {
			if filter.Type != nil && tx.Type != trade.TransactionType(*filter.Type) {
				continue
			}
			responses = append(responses, ToTransactionResponse(tx))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// AddItem adds a line item to a draft transaction
func (c *TransactionCoordinator) AddItem(ctx context.Context, id uuid.UUID, req AddTransactionItemRequest) (*TransactionResponse, error) {
	return c.mutateDraft(ctx, id, func(repos TransactionalRepositories, tx *trade.BusinessTransaction) error {
		return c.addItem(ctx, repos, tx, req.ProductID, req.Quantity, req.UnitPrice)
	})
}

// UpdateItem updates a line item quantity on a draft transaction
func (c *TransactionCoordinator) UpdateItem(ctx context.Context, id, itemID uuid.UUID, req UpdateTransactionItemRequest) (*TransactionResponse, error) {
	return c.mutateDraft(ctx, id, func(_ TransactionalRepositories, tx *trade.BusinessTransaction) error {
		return tx.UpdateItemQuantity(itemID, req.Quantity)
	})
}

// RemoveItem removes a line item from a draft transaction
func (c *TransactionCoordinator) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (*TransactionResponse, error) {
	return c.mutateDraft(ctx, id, func(_ TransactionalRepositories, tx *trade.BusinessTransaction) error {
		return tx.RemoveItem(itemID)
	})
}

// DeleteDraft removes an unapplied draft. Abandoning a draft is a
// deletion, never a reversal.
func (c *TransactionCoordinator) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	return c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !tx.IsDraft() {
			return shared.NewDomainError("INVALID_STATE", "Only draft transactions can be deleted")
		}
		return repos.TransactionRepo().DeleteDraft(ctx, id)
	})
}

// RecordPayment records an upfront payment against a draft or pending
// transaction. At apply the paid portion debits or credits cash and only
// the outstanding remainder hits the counterparty account.
func (c *TransactionCoordinator) RecordPayment(ctx context.Context, id uuid.UUID, req RecordPaymentRequest) (*TransactionResponse, error) {
	var response *TransactionResponse
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		amount, err := valueobject.NewMoney(req.Amount, tx.Currency)
		if err != nil {
			return err
		}
		if err := tx.RecordPayment(amount); err != nil {
			return err
		}
		if err := repos.TransactionRepo().SaveWithLock(ctx, tx); err != nil {
			return err
		}

		resp := ToTransactionResponse(tx)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Submit moves a draft to pending approval and fixes the tax amount per
// the active policy.
func (c *TransactionCoordinator) Submit(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	var response *TransactionResponse
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if taxed(tx.Type) && c.policy.TaxRate.IsPositive() {
			taxable := tx.Subtotal.Sub(tx.DiscountAmount)
			tax, err := valueobject.NewMoney(taxable.Mul(c.policy.TaxRate).Round(2), tx.Currency)
			if err != nil {
				return err
			}
			if err := tx.SetTax(tax); err != nil {
				return err
			}
		}

		if err := tx.Submit(); err != nil {
			return err
		}
		if err := repos.TransactionRepo().SaveWithLock(ctx, tx); err != nil {
			return err
		}

		c.publishEvents(ctx, tx)
		resp := ToTransactionResponse(tx)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Apply validates a pending transaction, posts its stock movements and a
// balanced journal batch, and advances the status to approved. All of it
// runs in one unit of work; any failure rolls back everything. Write
// conflicts are retried with exponential backoff.
func (c *TransactionCoordinator) Apply(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	var response *TransactionResponse
	err := c.withConflictRetry(ctx, func() error {
		var events []shared.DomainEvent
		err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			resp, evs, err := c.applyInScope(ctx, repos, id)
			if err != nil {
				return err
			}
			response = resp
			events = evs
			return nil
		})
		if err != nil {
			return err
		}
		c.publish(ctx, events)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Complete marks an applied sale as completed
func (c *TransactionCoordinator) Complete(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	var response *TransactionResponse
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Complete(); err != nil {
			return err
		}
		if err := repos.TransactionRepo().SaveWithLock(ctx, tx); err != nil {
			return err
		}
		resp := ToTransactionResponse(tx)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Reverse undoes an applied transaction: every stock movement is negated,
// the journal batch is reversed, the original is marked cancelled or
// returned, and a compensating transaction records the undo. A second
// reverse fails with ALREADY_REVERSED.
func (c *TransactionCoordinator) Reverse(ctx context.Context, id uuid.UUID, req ReverseTransactionRequest) (*ReverseTransactionResponse, error) {
	var response *ReverseTransactionResponse
	err := c.withConflictRetry(ctx, func() error {
		var events []shared.DomainEvent
		err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			resp, evs, err := c.reverseInScope(ctx, repos, id, req)
			if err != nil {
				return err
			}
			response = resp
			events = evs
			return nil
		})
		if err != nil {
			return err
		}
		c.publish(ctx, events)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (c *TransactionCoordinator) applyInScope(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*TransactionResponse, []shared.DomainEvent, error) {
	tx, err := repos.TransactionRepo().FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	target := trade.AppliedStatus(tx.Type)
	if !trade.CanTransition(tx.Type, tx.Status, target) {
		return nil, nil, shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot apply %s transaction in %s status", tx.Type, tx.Status))
	}

	if tx.Type.MovesStock() {
		if len(tx.Items) == 0 {
			return nil, nil, shared.NewDomainError("VALIDATION_ERROR", "Transaction has no items")
		}
		if tx.WarehouseID == nil {
			return nil, nil, shared.NewDomainError("VALIDATION_ERROR", "Transaction has no warehouse")
		}
		if err := c.requireWarehouse(ctx, repos, *tx.WarehouseID); err != nil {
			return nil, nil, err
		}
		for _, item := range tx.Items {
			if _, err := repos.ProductRepo().FindByID(ctx, item.ProductID); err != nil {
				return nil, nil, err
			}
		}
	}

	costed, events, err := c.postStockMovements(ctx, repos, tx)
	if err != nil {
		return nil, nil, err
	}

	entries, err := c.buildJournalBatch(ctx, repos, tx, costed)
	if err != nil {
		return nil, nil, err
	}
	if err := accounting.ValidateBatch(entries); err != nil {
		return nil, nil, err
	}
	if err := repos.JournalRepo().AppendBatch(ctx, entries); err != nil {
		return nil, nil, err
	}
	events = append(events, accounting.NewJournalEntriesPostedEvent(tx.ID, entries, false))

	// Status advances only after stock and journal effects are in
	if err := tx.MarkApproved(); err != nil {
		return nil, nil, err
	}
	if err := repos.TransactionRepo().SaveWithLock(ctx, tx); err != nil {
		return nil, nil, err
	}

	events = append(events, tx.GetDomainEvents()...)
	tx.ClearDomainEvents()

	resp := ToTransactionResponse(tx)
	return &resp, events, nil
}

// postStockMovements posts one movement per line item and consumes any
// active reservations held for the transaction. Returns the costed value
// of the outflow or inflow, priced by the stock ledger, for the journal's
// cost-side entries.
func (c *TransactionCoordinator) postStockMovements(ctx context.Context, repos TransactionalRepositories, tx *trade.BusinessTransaction) (decimal.Decimal, []shared.DomainEvent, error) {
	costed := decimal.Zero
	var events []shared.DomainEvent

	if !tx.Type.MovesStock() {
		return costed, events, nil
	}

	reservations, err := repos.ReservationRepo().FindActiveByTransaction(ctx, tx.ID)
	if err != nil {
		return costed, nil, err
	}
	reservedByItem := make(map[uuid.UUID][]*stock.StockReservation)
	for idx := range reservations {
		res := &reservations[idx]
		reservedByItem[res.StockItemID] = append(reservedByItem[res.StockItemID], res)
	}

	reason := movementReason(tx.Type)

	for _, lineItem := range tx.Items {
		item, err := repos.StockItemRepo().GetOrCreate(ctx, *tx.WarehouseID, lineItem.ProductID)
		if err != nil {
			return costed, nil, err
		}

		for _, res := range reservedByItem[item.ID] {
			if err := item.ConsumeReservation(res); err != nil {
				return costed, nil, err
			}
			if err := repos.ReservationRepo().Save(ctx, res); err != nil {
				return costed, nil, err
			}
		}

		var movement *stock.StockMovement
		if tx.Type.StockDirection() > 0 {
			unitCost := c.inboundUnitCost(ctx, repos, tx, lineItem, item)
			movement, err = item.PostInbound(lineItem.Quantity, unitCost, reason, tx.ID)
		} else {
			movement, err = item.PostOutbound(lineItem.Quantity, reason, tx.ID, c.policy.AllowNegativeStock)
		}
		if err != nil {
			return costed, nil, err
		}

		if err := repos.MovementRepo().Append(ctx, movement); err != nil {
			return costed, nil, err
		}
		if err := repos.StockItemRepo().SaveWithLock(ctx, item); err != nil {
			return costed, nil, err
		}

		costed = costed.Add(movement.TotalCost().Abs())
		events = append(events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}

	return costed.Round(2), events, nil
}

// inboundUnitCost prices an inbound movement. Purchases enter at the
// purchase price; sale returns re-enter at the item's current moving
// average, falling back to the product's reference cost for an empty item.
func (c *TransactionCoordinator) inboundUnitCost(ctx context.Context, repos TransactionalRepositories, tx *trade.BusinessTransaction, lineItem trade.TransactionItem, item *stock.StockItem) decimal.Decimal {
	if tx.Type == trade.TransactionTypePurchase {
		return lineItem.UnitPrice
	}
	if item.MovingAverageCost.IsPositive() {
		return item.MovingAverageCost
	}
	if product, err := repos.ProductRepo().FindByID(ctx, lineItem.ProductID); err == nil {
		return product.CostPrice
	}
	return lineItem.UnitPrice
}

// buildJournalBatch constructs the balanced entry set for the transaction
// type. The revenue side uses the transaction total split between cash
// and receivable/payable by the paid amount; the cost side uses the
// stock-ledger costed value.
func (c *TransactionCoordinator) buildJournalBatch(ctx context.Context, repos TransactionalRepositories, tx *trade.BusinessTransaction, costed decimal.Decimal) ([]*accounting.JournalEntry, error) {
	accounts, err := c.resolveAccounts(ctx, repos)
	if err != nil {
		return nil, err
	}

	total, err := valueobject.NewMoney(tx.TotalAmount, tx.Currency)
	if err != nil {
		return nil, err
	}
	costedMoney, err := valueobject.NewMoney(costed, tx.Currency)
	if err != nil {
		return nil, err
	}
	paid, err := valueobject.NewMoney(tx.PaidAmount, tx.Currency)
	if err != nil {
		return nil, err
	}

	var entries []*accounting.JournalEntry
	appendEntry := func(entry *accounting.JournalEntry, err error) error {
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	}

	// splitReceipt debits (or credits) cash for the paid portion and the
	// counterparty account for the rest
	splitReceipt := func(counterpartyAccount uuid.UUID, debitSide bool, label string) error {
		outstanding, err := total.Subtract(paid)
		if err != nil {
			return err
		}
		post := func(account uuid.UUID, amount valueobject.Money, memo string) error {
			if !amount.IsPositive() {
				return nil
			}
			if debitSide {
				return appendEntry(accounting.NewDebitEntry(account, amount, tx.ID, memo))
			}
			return appendEntry(accounting.NewCreditEntry(account, amount, tx.ID, memo))
		}
		if err := post(accounts.cash, paid, label); err != nil {
			return err
		}
		return post(counterpartyAccount, outstanding, label)
	}

	switch tx.Type {
	case trade.TransactionTypeSale:
		if err := splitReceipt(accounts.receivable, true, "Sale "+tx.Number); err != nil {
			return nil, err
		}
		if err := appendEntry(accounting.NewCreditEntry(accounts.salesRevenue, total, tx.ID, "Sale "+tx.Number)); err != nil {
			return nil, err
		}
		if costedMoney.IsPositive() {
			if err := appendEntry(accounting.NewDebitEntry(accounts.cogs, costedMoney, tx.ID, "Cost of sale "+tx.Number)); err != nil {
				return nil, err
			}
			if err := appendEntry(accounting.NewCreditEntry(accounts.inventory, costedMoney, tx.ID, "Cost of sale "+tx.Number)); err != nil {
				return nil, err
			}
		}

	case trade.TransactionTypePurchase:
		if err := appendEntry(accounting.NewDebitEntry(accounts.inventory, total, tx.ID, "Purchase "+tx.Number)); err != nil {
			return nil, err
		}
		if err := splitReceipt(accounts.payable, false, "Purchase "+tx.Number); err != nil {
			return nil, err
		}

	case trade.TransactionTypeSaleReturn:
		if err := appendEntry(accounting.NewDebitEntry(accounts.salesReturns, total, tx.ID, "Sale return "+tx.Number)); err != nil {
			return nil, err
		}
		if err := splitReceipt(accounts.receivable, false, "Sale return "+tx.Number); err != nil {
			return nil, err
		}
		if costedMoney.IsPositive() {
			if err := appendEntry(accounting.NewDebitEntry(accounts.inventory, costedMoney, tx.ID, "Restock "+tx.Number)); err != nil {
				return nil, err
			}
			if err := appendEntry(accounting.NewCreditEntry(accounts.cogs, costedMoney, tx.ID, "Restock "+tx.Number)); err != nil {
				return nil, err
			}
		}

	case trade.TransactionTypePurchaseReturn:
		if err := splitReceipt(accounts.payable, true, "Purchase return "+tx.Number); err != nil {
			return nil, err
		}
		if err := appendEntry(accounting.NewCreditEntry(accounts.inventory, costedMoney, tx.ID, "Purchase return "+tx.Number)); err != nil {
			return nil, err
		}
		// Price variance between the refund and the costed outflow
		variance := tx.TotalAmount.Sub(costed)
		if !variance.IsZero() {
			varianceMoney, err := valueobject.NewMoney(variance.Abs(), tx.Currency)
			if err != nil {
				return nil, err
			}
			if variance.IsPositive() {
				if err := appendEntry(accounting.NewCreditEntry(accounts.cogs, varianceMoney, tx.ID, "Return variance "+tx.Number)); err != nil {
					return nil, err
				}
			} else {
				if err := appendEntry(accounting.NewDebitEntry(accounts.cogs, varianceMoney, tx.ID, "Return variance "+tx.Number)); err != nil {
					return nil, err
				}
			}
		}

	case trade.TransactionTypeBank:
		// Receipt against the counterparty's receivable balance
		if err := appendEntry(accounting.NewDebitEntry(accounts.cash, total, tx.ID, "Receipt "+tx.Number)); err != nil {
			return nil, err
		}
		if err := appendEntry(accounting.NewCreditEntry(accounts.receivable, total, tx.ID, "Receipt "+tx.Number)); err != nil {
			return nil, err
		}

	default:
		return nil, shared.NewDomainError("INVALID_TYPE", fmt.Sprintf("Unsupported transaction type: %s", tx.Type))
	}

	return entries, nil
}

func (c *TransactionCoordinator) reverseInScope(ctx context.Context, repos TransactionalRepositories, id uuid.UUID, req ReverseTransactionRequest) (*ReverseTransactionResponse, []shared.DomainEvent, error) {
	tx, err := repos.TransactionRepo().FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	target := trade.StatusCancelled
	if req.Kind == "return" {
		target = trade.StatusReturned
	}
	if !trade.TriggersReverse(tx.Status, target) {
		return nil, nil, shared.NewDomainError("INVALID_STATE", "Only applied transactions can be reversed")
	}
	if tx.IsReversed() {
		return nil, nil, shared.ErrAlreadyReversed
	}
	hasReversal, err := repos.JournalRepo().HasReversal(ctx, tx.ID)
	if err != nil {
		return nil, nil, err
	}
	if hasReversal {
		return nil, nil, shared.ErrAlreadyReversed
	}

	var events []shared.DomainEvent

	// Negate every stock movement of the transaction
	movements, err := repos.MovementRepo().FindByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, nil, err
	}
	for idx := range movements {
		original := &movements[idx]
		if original.Reason.IsReversal() {
			continue
		}
		item, err := repos.StockItemRepo().FindByID(ctx, original.StockItemID)
		if err != nil {
			return nil, nil, err
		}
		reversalMovement, err := item.PostReversal(original, c.policy.AllowNegativeStock)
		if err != nil {
			return nil, nil, err
		}
		if err := repos.MovementRepo().Append(ctx, reversalMovement); err != nil {
			return nil, nil, err
		}
		if err := repos.StockItemRepo().SaveWithLock(ctx, item); err != nil {
			return nil, nil, err
		}
		events = append(events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}

	// Swap debit and credit on the original journal batch
	entries, err := repos.JournalRepo().FindByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, nil, err
	}
	originals := make([]*accounting.JournalEntry, 0, len(entries))
	for idx := range entries {
		if !entries[idx].Reversal {
			originals = append(originals, &entries[idx])
		}
	}
	if len(originals) > 0 {
		reversalBatch := accounting.BuildReversalBatch(originals)
		if err := accounting.ValidateBatch(reversalBatch); err != nil {
			return nil, nil, err
		}
		if err := repos.JournalRepo().AppendBatch(ctx, reversalBatch); err != nil {
			return nil, nil, err
		}
		events = append(events, accounting.NewJournalEntriesPostedEvent(tx.ID, reversalBatch, true))
	}

	// Record the compensation and mark the original
	compensating, err := c.buildCompensating(ctx, repos, tx)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.LinkReversal(compensating); err != nil {
		return nil, nil, err
	}

	if req.Kind == "return" {
		err = tx.MarkReturned()
	} else {
		reason := req.Reason
		if reason == "" {
			reason = "Reversed by " + compensating.Number
		}
		err = tx.MarkCancelled(reason)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := repos.TransactionRepo().Save(ctx, compensating); err != nil {
		return nil, nil, err
	}
	if err := repos.TransactionRepo().SaveWithLock(ctx, tx); err != nil {
		return nil, nil, err
	}

	events = append(events, trade.NewTransactionReversedEvent(tx, compensating.ID))

	originalResp := ToTransactionResponse(tx)
	compResp := ToTransactionResponse(compensating)
	return &ReverseTransactionResponse{Original: originalResp, Compensating: &compResp}, events, nil
}

// buildCompensating creates the applied compensating transaction record
// mirroring the original's lines and totals.
func (c *TransactionCoordinator) buildCompensating(ctx context.Context, repos TransactionalRepositories, original *trade.BusinessTransaction) (*trade.BusinessTransaction, error) {
	compType := compensatingType(original.Type)
	number, err := repos.TransactionRepo().NextNumber(ctx, compType)
	if err != nil {
		return nil, err
	}

	comp, err := trade.NewBusinessTransaction(number, compType, original.CounterpartyID, original.CounterpartyName, original.Currency)
	if err != nil {
		return nil, err
	}
	comp.Remark = "Reverses " + original.Number
	comp.ClearDomainEvents()

	if original.WarehouseID != nil {
		if err := comp.SetWarehouse(*original.WarehouseID); err != nil {
			return nil, err
		}
	}
	if comp.Type.MovesStock() {
		for _, item := range original.Items {
			unitPrice, err := valueobject.NewMoney(item.UnitPrice, original.Currency)
			if err != nil {
				return nil, err
			}
			if _, err := comp.AddItem(item.ProductID, item.ProductName, item.SKU, item.Unit, item.Quantity, unitPrice); err != nil {
				return nil, err
			}
		}
	} else {
		amount, err := valueobject.NewMoney(original.TotalAmount, original.Currency)
		if err != nil {
			return nil, err
		}
		if err := comp.SetBankAmount(amount); err != nil {
			return nil, err
		}
	}

	// The compensating record is born applied; its stock and journal
	// effects are the reversal postings made above
	if err := comp.Submit(); err != nil {
		return nil, err
	}
	if err := comp.MarkApproved(); err != nil {
		return nil, err
	}
	comp.ClearDomainEvents()

	return comp, nil
}

type resolvedAccounts struct {
	cash         uuid.UUID
	receivable   uuid.UUID
	payable      uuid.UUID
	inventory    uuid.UUID
	salesRevenue uuid.UUID
	salesReturns uuid.UUID
	cogs         uuid.UUID
}

func (c *TransactionCoordinator) resolveAccounts(ctx context.Context, repos TransactionalRepositories) (*resolvedAccounts, error) {
	lookup := func(code string) (uuid.UUID, error) {
		account, err := repos.AccountRepo().FindByCode(ctx, code)
		if err != nil {
			return uuid.Nil, err
		}
		return account.ID, nil
	}

	var accounts resolvedAccounts
	var err error
	if accounts.cash, err = lookup(accounting.AccountCodeCash); err != nil {
		return nil, err
	}
	if accounts.receivable, err = lookup(accounting.AccountCodeAccountsReceivable); err != nil {
		return nil, err
	}
	if accounts.payable, err = lookup(accounting.AccountCodeAccountsPayable); err != nil {
		return nil, err
	}
	if accounts.inventory, err = lookup(accounting.AccountCodeInventory); err != nil {
		return nil, err
	}
	if accounts.salesRevenue, err = lookup(accounting.AccountCodeSalesRevenue); err != nil {
		return nil, err
	}
	if accounts.salesReturns, err = lookup(accounting.AccountCodeSalesReturns); err != nil {
		return nil, err
	}
	if accounts.cogs, err = lookup(accounting.AccountCodeCOGS); err != nil {
		return nil, err
	}
	return &accounts, nil
}

func (c *TransactionCoordinator) mutateDraft(ctx context.Context, id uuid.UUID, mutate func(repos TransactionalRepositories, tx *trade.BusinessTransaction) error) (*TransactionResponse, error) {
	var response *TransactionResponse
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(repos, tx); err != nil {
			return err
		}
		if err := repos.TransactionRepo().SaveWithLock(ctx, tx); err != nil {
			return err
		}
		resp := ToTransactionResponse(tx)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// addItem validates the product and adds a line item priced from the
// request, carrying the product's display fields onto the line.
func (c *TransactionCoordinator) addItem(ctx context.Context, repos TransactionalRepositories, tx *trade.BusinessTransaction, productID uuid.UUID, quantity, unitPrice decimal.Decimal) error {
	product, err := repos.ProductRepo().FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.Active {
		return shared.NewDomainError("VALIDATION_ERROR", "Product is deactivated")
	}

	price, err := valueobject.NewMoney(unitPrice, tx.Currency)
	if err != nil {
		return err
	}
	_, err = tx.AddItem(product.ID, product.Name, product.SKU, product.Unit, quantity, price)
	return err
}

func (c *TransactionCoordinator) requireWarehouse(ctx context.Context, repos TransactionalRepositories, warehouseID uuid.UUID) error {
	warehouse, err := repos.WarehouseRepo().FindByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !warehouse.Active {
		return shared.NewDomainError("VALIDATION_ERROR", "Warehouse is deactivated")
	}
	return nil
}

// withConflictRetry retries the operation on CONCURRENT_MODIFICATION with
// exponential backoff. All other errors are terminal for the call.
func (c *TransactionCoordinator) withConflictRetry(ctx context.Context, op func() error) error {
	delay := c.policy.RetryBaseDelay
	var err error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		err = op()
		if err == nil || !shared.IsCode(err, "CONCURRENT_MODIFICATION") {
			return err
		}
		if attempt == c.policy.MaxRetries {
			break
		}
		c.logger.Warn("write conflict, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func (c *TransactionCoordinator) publishEvents(ctx context.Context, tx *trade.BusinessTransaction) {
	c.publish(ctx, tx.GetDomainEvents())
	tx.ClearDomainEvents()
}

func (c *TransactionCoordinator) publish(ctx context.Context, events []shared.DomainEvent) {
	if c.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Errors are logged by the event bus, not propagated
	_ = c.eventPublisher.Publish(ctx, events...)
}

func movementReason(txType trade.TransactionType) stock.MovementReason {
	switch txType {
	case trade.TransactionTypePurchase:
		return stock.ReasonPurchase
	case trade.TransactionTypeSale:
		return stock.ReasonSale
	case trade.TransactionTypeSaleReturn:
		return stock.ReasonReturnIn
	case trade.TransactionTypePurchaseReturn:
		return stock.ReasonReturnOut
	}
	return stock.ReasonAdjustment
}

func compensatingType(txType trade.TransactionType) trade.TransactionType {
	switch txType {
	case trade.TransactionTypeSale:
		return trade.TransactionTypeSaleReturn
	case trade.TransactionTypePurchase:
		return trade.TransactionTypePurchaseReturn
	}
	return txType
}

// taxed reports whether the policy tax rate applies to this type
func taxed(txType trade.TransactionType) bool {
	return txType == trade.TransactionTypeSale || txType == trade.TransactionTypeSaleReturn
}
