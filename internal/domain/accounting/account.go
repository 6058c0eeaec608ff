package accounting

import (
	"time"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountType classifies a ledger account within the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// IsValid checks if the account type is one of the known values
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsDebitNormal returns true for account types whose balance grows with
// debits (asset, expense). Liability, equity and income grow with credits.
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Well-known account codes seeded by the migrations and used by the
// transaction coordinator when building journal batches.
const (
	AccountCodeCash               = "1000"
	AccountCodeAccountsReceivable = "1100"
	AccountCodeInventory          = "1200"
	AccountCodeAccountsPayable    = "2000"
	AccountCodeSalesRevenue       = "4000"
	AccountCodeSalesReturns       = "4100"
	AccountCodeCOGS               = "5000"
)

// LedgerAccount is an account in the chart of accounts. Its balance is
// always derived from the journal, never stored as a mutable counter.
type LedgerAccount struct {
	shared.BaseAggregateRoot
	Code           string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name           string          `gorm:"type:varchar(255);not null"`
	Type           AccountType     `gorm:"type:varchar(20);not null;index"`
	SubType        string          `gorm:"type:varchar(50)"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Active         bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (LedgerAccount) TableName() string {
	return "ledger_accounts"
}

// NewLedgerAccount creates a new active ledger account
func NewLedgerAccount(code, name string, accountType AccountType, subType string, openingBalance decimal.Decimal) (*LedgerAccount, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Account code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", "Invalid account type")
	}

	return &LedgerAccount{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Type:              accountType,
		SubType:           subType,
		OpeningBalance:    openingBalance,
		Active:            true,
	}, nil
}

// Rename changes the display name
func (a *LedgerAccount) Rename(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	a.Name = name
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Deactivate soft-deactivates the account. Accounts with journal entries
// are never deleted.
func (a *LedgerAccount) Deactivate() {
	a.Active = false
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// BalanceFrom derives the signed balance from a debit total and a credit
// total, respecting the account type's normal side and including the
// opening balance.
func (a *LedgerAccount) BalanceFrom(debitTotal, creditTotal decimal.Decimal) decimal.Decimal {
	if a.Type.IsDebitNormal() {
		return a.OpeningBalance.Add(debitTotal.Sub(creditTotal))
	}
	return a.OpeningBalance.Add(creditTotal.Sub(debitTotal))
}
