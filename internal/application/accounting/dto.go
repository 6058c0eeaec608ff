package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest represents a request to create a ledger account
type CreateAccountRequest struct {
	Code           string          `json:"code" binding:"required,min=1,max=20"`
	Name           string          `json:"name" binding:"required,min=1,max=100"`
	Type           string          `json:"type" binding:"required"`
	SubType        string          `json:"sub_type" binding:"max=50"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// AccountResponse represents a ledger account in responses
type AccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	SubType        string          `json:"sub_type,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BalanceResponse represents a derived account balance
type BalanceResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	DebitTotal  decimal.Decimal `json:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total"`
	Balance     decimal.Decimal `json:"balance"`
	AsOf        *time.Time      `json:"as_of,omitempty"`
}

// JournalEntryResponse represents a journal entry in responses
type JournalEntryResponse struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Currency      string          `json:"currency"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Description   string          `json:"description,omitempty"`
	Reversal      bool            `json:"reversal"`
	PostedAt      time.Time       `json:"posted_at"`
}

// ToAccountResponse converts a ledger account to a response DTO
func ToAccountResponse(account *accounting.LedgerAccount) AccountResponse {
	return AccountResponse{
		ID:             account.ID,
		Code:           account.Code,
		Name:           account.Name,
		Type:           string(account.Type),
		SubType:        account.SubType,
		OpeningBalance: account.OpeningBalance,
		Active:         account.Active,
		CreatedAt:      account.CreatedAt,
	}
}

// ToJournalEntryResponse converts a journal entry to a response DTO
func ToJournalEntryResponse(entry *accounting.JournalEntry) JournalEntryResponse {
	return JournalEntryResponse{
		ID:            entry.ID,
		AccountID:     entry.AccountID,
		Debit:         entry.Debit,
		Credit:        entry.Credit,
		Currency:      string(entry.Currency),
		TransactionID: entry.TransactionID,
		Description:   entry.Description,
		Reversal:      entry.Reversal,
		PostedAt:      entry.PostedAt,
	}
}
