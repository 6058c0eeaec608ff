package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TransactionItem represents a line item of a business transaction
type TransactionItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName   string          `gorm:"type:varchar(100);not null"`
	SKU           string          `gorm:"type:varchar(50);not null"`
	Unit          string          `gorm:"type:varchar(20)"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM
func (TransactionItem) TableName() string {
	return "transaction_items"
}

// NewTransactionItem creates a new transaction line item. The line total is
// quantity times unit price, rounded at this boundary to 2 decimal places.
func NewTransactionItem(transactionID, productID uuid.UUID, productName, sku, unit string, quantity decimal.Decimal, unitPrice valueobject.Money) (*TransactionItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &TransactionItem{
		ID:            uuid.New(),
		TransactionID: transactionID,
		ProductID:     productID,
		ProductName:   productName,
		SKU:           sku,
		Unit:          unit,
		Quantity:      quantity,
		UnitPrice:     unitPrice.Amount(),
		LineTotal:     quantity.Mul(unitPrice.Amount()).Round(2),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// UpdateQuantity updates the item quantity and recalculates the line total
func (i *TransactionItem) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	i.Quantity = quantity
	i.LineTotal = quantity.Mul(i.UnitPrice).Round(2)
	i.UpdatedAt = time.Now()

	return nil
}

// LineTotalMoney returns the line total as Money
func (i *TransactionItem) LineTotalMoney(currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(i.LineTotal, currency)
	return m
}

// BusinessTransaction is the aggregate root for a sale, purchase, return or
// bank transaction. Drafts are mutable; once applied the transaction is
// immutable and can only be undone through a compensating reversal.
type BusinessTransaction struct {
	shared.BaseAggregateRoot
	Number           string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type             TransactionType      `gorm:"type:varchar(20);not null;index"`
	Status           TransactionStatus    `gorm:"type:varchar(20);not null;index"`
	CounterpartyID   uuid.UUID            `gorm:"type:uuid;not null"`
	CounterpartyName string               `gorm:"type:varchar(100);not null"`
	WarehouseID      *uuid.UUID           `gorm:"type:uuid"`
	Date             time.Time            `gorm:"not null"`
	Items            []TransactionItem    `gorm:"foreignKey:TransactionID"`
	Currency         valueobject.Currency `gorm:"type:varchar(3);not null"`
	Subtotal         decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TaxAmount        decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountAmount   decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount       decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ReversesID       *uuid.UUID           `gorm:"type:uuid;index"`
	ReversedByID     *uuid.UUID           `gorm:"type:uuid;uniqueIndex"`
	Remark           string               `gorm:"type:varchar(255)"`
	ApprovedAt       *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (BusinessTransaction) TableName() string {
	return "business_transactions"
}

// NewBusinessTransaction creates a draft transaction
func NewBusinessTransaction(number string, txType TransactionType, counterpartyID uuid.UUID, counterpartyName string, currency valueobject.Currency) (*BusinessTransaction, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Transaction number cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", fmt.Sprintf("Invalid transaction type: %s", txType))
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty name cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	tx := &BusinessTransaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Type:              txType,
		Status:            StatusDraft,
		CounterpartyID:    counterpartyID,
		CounterpartyName:  counterpartyName,
		Date:              time.Now(),
		Items:             make([]TransactionItem, 0),
		Currency:          currency,
		Subtotal:          decimal.Zero,
		TaxAmount:         decimal.Zero,
		DiscountAmount:    decimal.Zero,
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
	}

	tx.AddDomainEvent(NewTransactionCreatedEvent(tx))

	return tx, nil
}

// AddItem adds a line item to a draft transaction
func (t *BusinessTransaction) AddItem(productID uuid.UUID, productName, sku, unit string, quantity decimal.Decimal, unitPrice valueobject.Money) (*TransactionItem, error) {
	if t.Status != StatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a non-draft transaction")
	}
	if !t.Type.MovesStock() {
		return nil, shared.NewDomainError("INVALID_STATE", "Bank transactions have no line items")
	}
	if unitPrice.Currency() != t.Currency {
		return nil, shared.ErrCurrencyMismatch
	}
	for _, item := range t.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists in transaction, update quantity instead")
		}
	}

	item, err := NewTransactionItem(t.ID, productID, productName, sku, unit, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	t.Items = append(t.Items, *item)
	t.recalculateTotals()
	t.UpdatedAt = time.Now()

	return item, nil
}

// UpdateItemQuantity updates the quantity of an existing line item
func (t *BusinessTransaction) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.Decimal) error {
	if t.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot update items in a non-draft transaction")
	}

	for idx := range t.Items {
		if t.Items[idx].ID == itemID {
			if err := t.Items[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			t.recalculateTotals()
			t.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Transaction item not found")
}

// RemoveItem removes a line item from a draft transaction
func (t *BusinessTransaction) RemoveItem(itemID uuid.UUID) error {
	if t.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove items from a non-draft transaction")
	}

	for idx, item := range t.Items {
		if item.ID == itemID {
			t.Items = append(t.Items[:idx], t.Items[idx+1:]...)
			t.recalculateTotals()
			t.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Transaction item not found")
}

// SetWarehouse sets the warehouse the stock movements post against
func (t *BusinessTransaction) SetWarehouse(warehouseID uuid.UUID) error {
	if t.Status != StatusDraft && t.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Cannot set warehouse in current status")
	}
	if warehouseID == uuid.Nil {
		return shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}

	t.WarehouseID = &warehouseID
	t.UpdatedAt = time.Now()

	return nil
}

// ApplyDiscount applies a transaction-level discount to a draft
func (t *BusinessTransaction) ApplyDiscount(discount valueobject.Money) error {
	if t.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot apply discount to a non-draft transaction")
	}
	if discount.Currency() != t.Currency {
		return shared.ErrCurrencyMismatch
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if discount.Amount().GreaterThan(t.Subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed subtotal")
	}

	t.DiscountAmount = discount.Amount()
	t.recalculateTotals()
	t.UpdatedAt = time.Now()

	return nil
}

// SetBankAmount sets the amount moved by a bank transaction
func (t *BusinessTransaction) SetBankAmount(amount valueobject.Money) error {
	if t.Type != TransactionTypeBank {
		return shared.NewDomainError("INVALID_STATE", "Only bank transactions carry a direct amount")
	}
	if t.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot set amount on a non-draft transaction")
	}
	if amount.Currency() != t.Currency {
		return shared.ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Bank transaction amount must be positive")
	}

	t.Subtotal = amount.Amount()
	t.TotalAmount = amount.Amount()
	t.UpdatedAt = time.Now()

	return nil
}

// SetTax sets the transaction-level tax amount. The coordinator computes
// the amount per the active tax policy before approval.
func (t *BusinessTransaction) SetTax(tax valueobject.Money) error {
	if t.Status != StatusDraft && t.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Cannot set tax in current status")
	}
	if tax.Currency() != t.Currency {
		return shared.ErrCurrencyMismatch
	}
	if tax.IsNegative() {
		return shared.NewDomainError("INVALID_TAX", "Tax cannot be negative")
	}

	t.TaxAmount = tax.Amount()
	t.recalculateTotals()
	t.UpdatedAt = time.Now()

	return nil
}

// RecordPayment records an upfront payment against the transaction total.
// Payments are recorded before approval; the paid portion posts to cash
// instead of the counterparty account when the transaction applies.
// Settlements after approval go through a bank transaction.
func (t *BusinessTransaction) RecordPayment(amount valueobject.Money) error {
	if t.Status != StatusDraft && t.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Cannot record payment in current status")
	}
	if amount.Currency() != t.Currency {
		return shared.ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if t.PaidAmount.Add(amount.Amount()).GreaterThan(t.TotalAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment exceeds outstanding amount")
	}

	t.PaidAmount = t.PaidAmount.Add(amount.Amount())
	t.UpdatedAt = time.Now()

	return nil
}

// Submit moves a draft to pending approval
func (t *BusinessTransaction) Submit() error {
	if err := t.transitionTo(StatusPending); err != nil {
		return err
	}
	if t.Type.MovesStock() {
		if len(t.Items) == 0 {
			return shared.NewDomainError("NO_ITEMS", "Cannot submit a transaction without items")
		}
		if t.WarehouseID == nil {
			return shared.NewDomainError("NO_WAREHOUSE", "Warehouse must be set before submitting")
		}
	} else if !t.TotalAmount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Bank transaction amount must be set before submitting")
	}

	t.Status = StatusPending
	t.UpdatedAt = time.Now()

	t.AddDomainEvent(NewTransactionSubmittedEvent(t))

	return nil
}

// MarkApproved advances the transaction to the applied state. The
// coordinator calls this only after stock movements and journal entries
// have posted inside the same unit of work.
func (t *BusinessTransaction) MarkApproved() error {
	if err := t.transitionTo(StatusApproved); err != nil {
		return err
	}

	now := time.Now()
	t.Status = StatusApproved
	t.ApprovedAt = &now
	t.UpdatedAt = now

	t.AddDomainEvent(NewTransactionAppliedEvent(t))

	return nil
}

// Complete marks an applied sale as completed (delivered). No further
// stock or journal effects.
func (t *BusinessTransaction) Complete() error {
	if err := t.transitionTo(StatusCompleted); err != nil {
		return err
	}

	now := time.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now

	return nil
}

// MarkCancelled records the cancellation. For applied transactions the
// coordinator posts the compensating movements and entries first.
func (t *BusinessTransaction) MarkCancelled(reason string) error {
	if err := t.transitionTo(StatusCancelled); err != nil {
		return err
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	t.Status = StatusCancelled
	t.CancelledAt = &now
	t.CancelReason = reason
	t.UpdatedAt = now

	return nil
}

// MarkReturned records that a compensating return transaction reversed
// this one.
func (t *BusinessTransaction) MarkReturned() error {
	if err := t.transitionTo(StatusReturned); err != nil {
		return err
	}

	t.Status = StatusReturned
	t.UpdatedAt = time.Now()

	return nil
}

// LinkReversal links the original and its compensating transaction in
// both directions. A second link fails; one compensation per original.
func (t *BusinessTransaction) LinkReversal(compensating *BusinessTransaction) error {
	if t.ReversedByID != nil {
		return shared.ErrAlreadyReversed
	}

	t.ReversedByID = &compensating.ID
	compensating.ReversesID = &t.ID
	t.UpdatedAt = time.Now()

	return nil
}

func (t *BusinessTransaction) transitionTo(target TransactionStatus) error {
	if !CanTransition(t.Type, t.Status, target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition %s transaction from %s to %s", t.Type, t.Status, target))
	}
	return nil
}

// recalculateTotals derives subtotal and total from the line items. The
// subtotal is the exact sum of already-rounded line totals; the grand
// total rounds once more at this boundary.
func (t *BusinessTransaction) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range t.Items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	t.Subtotal = subtotal

	if t.DiscountAmount.GreaterThan(t.Subtotal) {
		t.DiscountAmount = t.Subtotal
	}
	t.TotalAmount = t.Subtotal.Sub(t.DiscountAmount).Add(t.TaxAmount).Round(2)
}

// TotalMoney returns the grand total as Money
func (t *BusinessTransaction) TotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(t.TotalAmount, t.Currency)
	return m
}

// SubtotalMoney returns the subtotal as Money
func (t *BusinessTransaction) SubtotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(t.Subtotal, t.Currency)
	return m
}

// OutstandingMoney returns total minus payments received
func (t *BusinessTransaction) OutstandingMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(t.TotalAmount.Sub(t.PaidAmount), t.Currency)
	return m
}

// IsApplied returns true once stock and journal effects have posted
func (t *BusinessTransaction) IsApplied() bool {
	return t.Status == StatusApproved || t.Status == StatusCompleted ||
		(t.ApprovedAt != nil && (t.Status == StatusCancelled || t.Status == StatusReturned))
}

// IsDraft returns true if the transaction is still a draft
func (t *BusinessTransaction) IsDraft() bool {
	return t.Status == StatusDraft
}

// IsReversed returns true if a compensating transaction references this one
func (t *BusinessTransaction) IsReversed() bool {
	return t.ReversedByID != nil
}

// ItemCount returns the number of line items
func (t *BusinessTransaction) ItemCount() int {
	return len(t.Items)
}

// GetItem returns a line item by its ID
func (t *BusinessTransaction) GetItem(itemID uuid.UUID) *TransactionItem {
	for idx := range t.Items {
		if t.Items[idx].ID == itemID {
			return &t.Items[idx]
		}
	}
	return nil
}
