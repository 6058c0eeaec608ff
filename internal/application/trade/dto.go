package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest represents a request to create a draft transaction
type CreateTransactionRequest struct {
	Type             string                       `json:"type" binding:"required"`
	CounterpartyID   uuid.UUID                    `json:"counterparty_id" binding:"required"`
	CounterpartyName string                       `json:"counterparty_name" binding:"required,min=1,max=100"`
	WarehouseID      *uuid.UUID                   `json:"warehouse_id"`
	Currency         string                       `json:"currency"`
	Items            []CreateTransactionItemInput `json:"items"`
	Discount         *decimal.Decimal             `json:"discount"`
	Amount           *decimal.Decimal             `json:"amount"` // bank transactions only
	Remark           string                       `json:"remark"`
}

// CreateTransactionItemInput represents a line item in the create request
type CreateTransactionItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,decimalgt0"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// AddTransactionItemRequest represents a request to add a line item to a draft
type AddTransactionItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,decimalgt0"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// UpdateTransactionItemRequest represents a request to update a line item quantity
type UpdateTransactionItemRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required,decimalgt0"`
}

// RecordPaymentRequest represents a request to record an upfront payment
// against a draft or pending transaction
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required,decimalgt0"`
}

// ReverseTransactionRequest represents a request to reverse an applied transaction
type ReverseTransactionRequest struct {
	// Kind selects cancellation or return semantics; a return produces a
	// compensating return transaction, a cancel annotates the original.
	Kind   string `json:"kind" binding:"required,oneof=cancel return"`
	Reason string `json:"reason" binding:"max=255"`
}

// TransactionListFilter represents filter options for the transaction list
type TransactionListFilter struct {
	Search   string     `form:"search"`
	Type     *string    `form:"type"`
	Status   *string    `form:"status"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	DateFrom *time.Time `form:"date_from"`
	DateTo   *time.Time `form:"date_to"`
}

// TransactionItemResponse represents a line item in responses
type TransactionItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// TransactionResponse represents a business transaction in responses
type TransactionResponse struct {
	ID               uuid.UUID                 `json:"id"`
	Number           string                    `json:"number"`
	Type             string                    `json:"type"`
	Status           string                    `json:"status"`
	CounterpartyID   uuid.UUID                 `json:"counterparty_id"`
	CounterpartyName string                    `json:"counterparty_name"`
	WarehouseID      *uuid.UUID                `json:"warehouse_id,omitempty"`
	Date             time.Time                 `json:"date"`
	Currency         string                    `json:"currency"`
	Items            []TransactionItemResponse `json:"items"`
	Subtotal         decimal.Decimal           `json:"subtotal"`
	TaxAmount        decimal.Decimal           `json:"tax_amount"`
	DiscountAmount   decimal.Decimal           `json:"discount_amount"`
	TotalAmount      decimal.Decimal           `json:"total_amount"`
	PaidAmount       decimal.Decimal           `json:"paid_amount"`
	ReversesID       *uuid.UUID                `json:"reverses_id,omitempty"`
	ReversedByID     *uuid.UUID                `json:"reversed_by_id,omitempty"`
	Remark           string                    `json:"remark,omitempty"`
	CancelReason     string                    `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// ReverseTransactionResponse carries the original and compensating records
type ReverseTransactionResponse struct {
	Original     TransactionResponse  `json:"original"`
	Compensating *TransactionResponse `json:"compensating,omitempty"`
}

// ToTransactionResponse converts a domain transaction to a response DTO
func ToTransactionResponse(tx *trade.BusinessTransaction) TransactionResponse {
	items := make([]TransactionItemResponse, 0, len(tx.Items))
	for _, item := range tx.Items {
		items = append(items, TransactionItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Unit:        item.Unit,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}

	return TransactionResponse{
		ID:               tx.ID,
		Number:           tx.Number,
		Type:             tx.Type.String(),
		Status:           tx.Status.String(),
		CounterpartyID:   tx.CounterpartyID,
		CounterpartyName: tx.CounterpartyName,
		WarehouseID:      tx.WarehouseID,
		Date:             tx.Date,
		Currency:         string(tx.Currency),
		Items:            items,
		Subtotal:         tx.Subtotal,
		TaxAmount:        tx.TaxAmount,
		DiscountAmount:   tx.DiscountAmount,
		TotalAmount:      tx.TotalAmount,
		PaidAmount:       tx.PaidAmount,
		ReversesID:       tx.ReversesID,
		ReversedByID:     tx.ReversedByID,
		Remark:           tx.Remark,
		CancelReason:     tx.CancelReason,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}
}
