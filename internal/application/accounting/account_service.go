package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/openbooks/backend/internal/domain/shared"
)

// AccountService manages the chart of accounts and answers balance and
// journal queries. Balances are always derived from entries; nothing here
// writes to the journal, posting is the coordinator's job.
type AccountService struct {
	accountRepo accounting.LedgerAccountRepository
	journalRepo accounting.JournalEntryRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo accounting.LedgerAccountRepository, journalRepo accounting.JournalEntryRepository) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		journalRepo: journalRepo,
	}
}

// Create creates a new ledger account
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	if _, err := s.accountRepo.FindByCode(ctx, req.Code); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Account code %s already exists", req.Code))
	}

	account, err := accounting.NewLedgerAccount(req.Code, req.Name, accounting.AccountType(req.Type), req.SubType, req.OpeningBalance)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}

	response := ToAccountResponse(account)
	return &response, nil
}

// Get retrieves an account by ID
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// List retrieves accounts with pagination
func (s *AccountService) List(ctx context.Context, filter shared.Filter) ([]AccountResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	accounts, err := s.accountRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for idx := range accounts {
		responses = append(responses, ToAccountResponse(&accounts[idx]))
	}
	return responses, nil
}

// Deactivate marks an account inactive. Accounts referenced by entries
// are never deleted.
func (s *AccountService) Deactivate(ctx context.Context, id uuid.UUID) error {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	account.Deactivate()
	return s.accountRepo.Save(ctx, account)
}

// BalanceOf derives the account balance from its entries: debit minus
// credit for debit-normal accounts, credit minus debit otherwise, both
// including the opening balance. asOf restricts to entries posted at or
// before that time.
func (s *AccountService) BalanceOf(ctx context.Context, id uuid.UUID, asOf *time.Time) (*BalanceResponse, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	totals, err := s.journalRepo.SumByAccount(ctx, id, asOf)
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		AccountID:   account.ID,
		Code:        account.Code,
		Name:        account.Name,
		Type:        string(account.Type),
		DebitTotal:  totals.Debit,
		CreditTotal: totals.Credit,
		Balance:     account.BalanceFrom(totals.Debit, totals.Credit),
		AsOf:        asOf,
	}, nil
}

// JournalByTransaction retrieves all entries posted for a transaction
func (s *AccountService) JournalByTransaction(ctx context.Context, transactionID uuid.UUID) ([]JournalEntryResponse, error) {
	entries, err := s.journalRepo.FindByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	responses := make([]JournalEntryResponse, 0, len(entries))
	for idx := range entries {
		responses = append(responses, ToJournalEntryResponse(&entries[idx]))
	}
	return responses, nil
}

// JournalByAccount retrieves the entry history for an account
func (s *AccountService) JournalByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]JournalEntryResponse, error) {
	entries, err := s.journalRepo.FindByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]JournalEntryResponse, 0, len(entries))
	for idx := range entries {
		responses = append(responses, ToJournalEntryResponse(&entries[idx]))
	}
	return responses, nil
}
